package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAddressBook map[uint32]bool

func (s stubAddressBook) Contains(icao uint32) bool { return s[icao] }

func defaultOpts() Options {
	return Options{CheckCRC: true, Correction: CorrectOneBit}
}

// TestDecodeIdentification covers the canonical KLM1023 identification
// squitter.
func TestDecodeIdentification(t *testing.T) {
	f := Decode(frameFromHex(t, "8D4840D6202CC371C32CE0576098"), nil, defaultOpts())

	require.True(t, f.CRCOk)
	assert.Equal(t, uint8(17), f.DF)
	assert.Equal(t, 112, f.Bits)
	assert.Equal(t, uint32(0x4840D6), f.ICAO)
	assert.Equal(t, uint8(4), f.TC)
	assert.Equal(t, "KLM1023", f.Callsign)
	assert.Equal(t, Corrected0, f.Correction)
	assert.Equal(t, "8D4840D6202CC371C32CE0576098", f.Hex())
}

// TestDecodeVelocity covers a ground-speed velocity squitter (TC19 ST1).
func TestDecodeVelocity(t *testing.T) {
	f := Decode(frameFromHex(t, "8D485020994409940838175B284F"), nil, defaultOpts())

	require.True(t, f.CRCOk)
	assert.Equal(t, uint8(19), f.TC)
	assert.Equal(t, uint8(1), f.Subtype)
	require.True(t, f.GroundSpeedValid)
	assert.Equal(t, uint16(159), f.GroundSpeed)
	require.True(t, f.TrackValid)
	assert.InDelta(t, 182.88, f.Track, 0.05)
	require.True(t, f.VertRateValid)
	assert.Equal(t, int32(-832), f.VertRate)
}

// TestDecodeAirbornePosition checks both parities of the canonical position
// pair: altitude, format flag and the raw 17-bit fields.
func TestDecodeAirbornePosition(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		odd      bool
		lat, lon uint32
	}{
		{name: "even", frame: "8D40621D58C382D690C8AC2863A7", odd: false, lat: 93000, lon: 51372},
		{name: "odd", frame: "8D40621D58C386435CC412692AD6", odd: true, lat: 74158, lon: 50194},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Decode(frameFromHex(t, tt.frame), nil, defaultOpts())

			require.True(t, f.CRCOk)
			assert.Equal(t, uint32(0x40621D), f.ICAO)
			require.True(t, f.CPRValid)
			assert.Equal(t, tt.odd, f.CPROdd)
			assert.Equal(t, tt.lat, f.CPRLat)
			assert.Equal(t, tt.lon, f.CPRLon)
			require.True(t, f.AltitudeValid)
			assert.Equal(t, int32(38000), f.Altitude)
			assert.False(t, f.Surface)
		})
	}
}

// TestDecodeSquawk checks identity decoding on a captured DF5 and on a
// synthesized emergency code.
func TestDecodeSquawk(t *testing.T) {
	f := Decode(frameFromHex(t, "2A00516D492B80"), nil, defaultOpts())
	assert.Equal(t, uint8(5), f.DF)
	require.True(t, f.SquawkValid)
	assert.Equal(t, uint16(356), f.Squawk)

	// 7700: all A and B pulses set in the interleaved identity field.
	msg := []byte{0x28, 0x00, 0x0A, 0xAA, 0, 0, 0}
	f = Decode(msg, nil, defaultOpts())
	require.True(t, f.SquawkValid)
	assert.Equal(t, uint16(7700), f.Squawk)
}

// TestMaskedICAOValidation synthesizes a DF4 whose parity masks a known
// address: accepted when whitelisted, rejected against an empty book.
func TestMaskedICAOValidation(t *testing.T) {
	icao := uint32(0x4840D6)
	msg := []byte{0x20, 0x00, 0x17, 0x18, 0, 0, 0}
	pi := Checksum(msg, 56) ^ icao
	msg[4] = byte(pi >> 16)
	msg[5] = byte(pi >> 8)
	msg[6] = byte(pi)

	opts := defaultOpts()
	opts.Whitelist = stubAddressBook{icao: true}
	f := Decode(msg, nil, opts)
	require.True(t, f.CRCOk)
	assert.Equal(t, icao, f.ICAO)
	require.True(t, f.AltitudeValid)
	assert.Equal(t, int32(36000), f.Altitude)

	opts.Whitelist = stubAddressBook{}
	f = Decode(msg, nil, opts)
	assert.False(t, f.CRCOk, "recovery against an empty whitelist must reject")
	assert.Equal(t, icao, f.ICAO, "candidate address still reported for diagnostics")
}

// TestMaskedICAONoiseRejected confirms that an arbitrary damaged frame
// cannot inject an address into the accepted stream.
func TestMaskedICAONoiseRejected(t *testing.T) {
	msg := []byte{0x20, 0x13, 0x37, 0xBE, 0xEF, 0x42, 0x99}
	opts := defaultOpts()
	opts.Whitelist = stubAddressBook{}

	f := Decode(msg, nil, opts)
	assert.False(t, f.CRCOk)
}

// TestSingleBitCorrection flips one bit of a valid squitter and checks the
// repair policy in every correction mode.
func TestSingleBitCorrection(t *testing.T) {
	tests := []struct {
		name     string
		mode     CorrectionMode
		accepted bool
	}{
		{name: "disabled", mode: CorrectNone, accepted: false},
		{name: "one bit", mode: CorrectOneBit, accepted: true},
		{name: "two bit", mode: CorrectTwoBit, accepted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := frameFromHex(t, "8D4840D6202CC371C32CE0576098")
			msg[5] ^= 0x04 // bit 45

			f := Decode(msg, nil, Options{CheckCRC: true, Correction: tt.mode})
			assert.Equal(t, tt.accepted, f.CRCOk)
			if tt.accepted {
				assert.Equal(t, Corrected1, f.Correction)
				assert.Equal(t, "KLM1023", f.Callsign)
			}
		})
	}
}

// TestTwoBitCorrection damages two bits and repairs them with the search
// restricted to the demodulator's uncertain positions.
func TestTwoBitCorrection(t *testing.T) {
	msg := frameFromHex(t, "8D4840D6202CC371C32CE0576098")
	msg[6] ^= 0x80 // bit 48
	msg[9] ^= 0x01 // bit 79

	f := Decode(msg, []int{12, 48, 79, 101}, Options{CheckCRC: true, Correction: CorrectTwoBit})
	require.True(t, f.CRCOk)
	assert.Equal(t, Corrected2, f.Correction)
	assert.Equal(t, "KLM1023", f.Callsign)

	// One-bit mode must not find a repair for a two-bit error.
	msg = frameFromHex(t, "8D4840D6202CC371C32CE0576098")
	msg[6] ^= 0x80
	msg[9] ^= 0x01
	f = Decode(msg, nil, Options{CheckCRC: true, Correction: CorrectOneBit})
	assert.False(t, f.CRCOk)
}

// TestCRCCheckDisabled accepts a damaged frame when checking is off.
func TestCRCCheckDisabled(t *testing.T) {
	msg := frameFromHex(t, "8D4840D6202CC371C32CE0576098")
	msg[5] ^= 0x04

	f := Decode(msg, nil, Options{CheckCRC: false, Correction: CorrectNone})
	assert.True(t, f.CRCOk)
}

// TestDecodeEmergencyStatus builds a TC28 subtype 1 aircraft status
// squitter carrying a lifeguard emergency code.
func TestDecodeEmergencyStatus(t *testing.T) {
	msg := make([]byte, 14)
	msg[0] = 0x8D
	msg[1], msg[2], msg[3] = 0x48, 0x40, 0xD6
	msg[4] = 28<<3 | 1
	msg[5] = 2 << 5 // lifeguard
	crc := Checksum(msg, 112)
	msg[11] = byte(crc >> 16)
	msg[12] = byte(crc >> 8)
	msg[13] = byte(crc)

	f := Decode(msg, nil, defaultOpts())
	require.True(t, f.CRCOk)
	assert.Equal(t, uint8(28), f.TC)
	assert.Equal(t, uint8(2), f.Emergency)
}

// TestDecodeAirspeed builds a TC19 subtype 3 squitter with heading and
// indicated airspeed.
func TestDecodeAirspeed(t *testing.T) {
	msg := make([]byte, 14)
	msg[0] = 0x8D
	msg[1], msg[2], msg[3] = 0x48, 0x40, 0xD6
	msg[4] = 19<<3 | 3
	msg[5] = 0x04 | 0x02 // heading status, heading raw 512 = 180 degrees
	msg[6] = 0x00
	msg[7] = 0x1F // airspeed raw 250, IAS
	msg[8] = 0x40
	crc := Checksum(msg, 112)
	msg[11] = byte(crc >> 16)
	msg[12] = byte(crc >> 8)
	msg[13] = byte(crc)

	f := Decode(msg, nil, defaultOpts())
	require.True(t, f.CRCOk)
	require.True(t, f.HeadingValid)
	assert.InDelta(t, 180.0, f.Heading, 0.01)
	require.True(t, f.AirspeedValid)
	assert.Equal(t, uint16(250), f.Airspeed)
	assert.False(t, f.AirspeedTAS)
}

// TestDecodeSurfacePosition marks TC 5-8 squitters as surface reports.
func TestDecodeSurfacePosition(t *testing.T) {
	msg := make([]byte, 14)
	msg[0] = 0x8D
	msg[1], msg[2], msg[3] = 0x48, 0x40, 0xD6
	msg[4] = 6 << 3
	msg[7] = 0xAB
	msg[9] = 0xCD
	crc := Checksum(msg, 112)
	msg[11] = byte(crc >> 16)
	msg[12] = byte(crc >> 8)
	msg[13] = byte(crc)

	f := Decode(msg, nil, defaultOpts())
	require.True(t, f.CRCOk)
	assert.True(t, f.Surface)
	assert.True(t, f.OnGround)
	assert.True(t, f.CPRValid)
}

// TestDecodeFlightStatus checks the FS-derived ground flag on surveillance
// replies.
func TestDecodeFlightStatus(t *testing.T) {
	icao := uint32(0xABCDEF)
	msg := []byte{0x20 | 0x01, 0x00, 0x17, 0x18, 0, 0, 0} // DF4, FS=1 on ground
	pi := Checksum(msg, 56) ^ icao
	msg[4] = byte(pi >> 16)
	msg[5] = byte(pi >> 8)
	msg[6] = byte(pi)

	opts := defaultOpts()
	opts.Whitelist = stubAddressBook{icao: true}
	f := Decode(msg, nil, opts)
	require.True(t, f.CRCOk)
	assert.Equal(t, uint8(1), f.FS)
	assert.True(t, f.OnGround)
}
