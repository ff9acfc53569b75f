package modes

import (
	"fmt"
	"time"
)

// Frame length constants.
const (
	LongFrameBits   = 112
	ShortFrameBits  = 56
	LongFrameBytes  = 14
	ShortFrameBytes = 7
)

// Correction records how a frame's checksum was repaired.
type Correction uint8

const (
	Corrected0 Correction = iota // checksum matched as received
	Corrected1                   // one flipped bit repaired
	Corrected2                   // two flipped bits repaired
)

// CorrectionMode selects how much CRC repair the decoder attempts.
type CorrectionMode uint8

const (
	CorrectNone CorrectionMode = iota
	CorrectOneBit
	CorrectTwoBit
)

// ParseCorrectionMode maps a configuration string to a CorrectionMode.
func ParseCorrectionMode(s string) (CorrectionMode, error) {
	switch s {
	case "none":
		return CorrectNone, nil
	case "one_bit":
		return CorrectOneBit, nil
	case "two_bit":
		return CorrectTwoBit, nil
	}
	return CorrectNone, fmt.Errorf("unknown correction mode %q", s)
}

// AddressBook answers whether an ICAO address has been seen in a
// self-identifying frame. Masked-parity recoveries are only trusted when the
// candidate address is already known.
type AddressBook interface {
	Contains(icao uint32) bool
}

// FrameBits returns the frame length in bits for a downlink format.
func FrameBits(df uint8) int {
	if df >= 16 {
		return LongFrameBits
	}
	return ShortFrameBits
}

// Frame is a CRC-checked Mode S frame together with every field the decoder
// extracted for its downlink format. Field validity is DF-dependent; the
// *Valid flags gate the optional ones.
type Frame struct {
	Raw        [LongFrameBytes]byte
	Bits       int
	DF         uint8
	CRC        uint32 // parity field as received; as repaired for DF11/17/18
	CRCOk      bool
	Correction Correction
	ICAO       uint32
	Signal     uint16
	Timestamp  time.Time

	// DF11/DF17 capability, DF18 control field.
	CA uint8
	CF uint8

	// DF4/5/20/21 surveillance fields.
	FS uint8
	DR uint8
	UM uint8

	// DF5/DF21 Mode A identity.
	Squawk      uint16
	SquawkValid bool

	// DF0/4/16/20 and airborne-position extended squitters.
	Altitude       int32
	AltitudeValid  bool
	AltitudeMeters bool // M-bit altitudes are metric

	// DF17/DF18 extended squitter.
	TC        uint8
	Subtype   uint8
	Callsign  string
	OnGround  bool
	Emergency uint8

	// Compact position report (TC 5-8 surface, 9-18/20-22 airborne).
	CPRValid   bool
	CPROdd     bool
	CPRUTCTime bool
	CPRLat     uint32
	CPRLon     uint32
	Surface    bool

	// TC19 airborne velocity.
	GroundSpeed      uint16
	GroundSpeedValid bool
	Airspeed         uint16
	AirspeedValid    bool
	AirspeedTAS      bool
	Track            float64
	TrackValid       bool
	Heading          float64
	HeadingValid     bool
	VertRate         int32
	VertRateValid    bool
	VertRateGeo      bool

	// DF20/DF21 Comm-B payload; nil when the MB block matched no register.
	BDS *BDS
}

// Hex renders the frame as uppercase hex, 14 or 28 digits, the form the raw
// output collaborator publishes.
func (f *Frame) Hex() string {
	return fmt.Sprintf("%X", f.Raw[:f.Bits/8])
}

// ICAOHex renders the resolved address as a 6-digit hex string.
func (f *Frame) ICAOHex() string {
	return fmt.Sprintf("%06X", f.ICAO)
}

// EmbeddedICAO reports whether the downlink format carries the address in
// clear (bytes 1-3) rather than masked into the parity field.
func EmbeddedICAO(df uint8) bool {
	return df == 11 || df == 17 || df == 18
}
