package modes

// BDSRegister identifies which Comm-B register an MB block matched.
type BDSRegister uint8

// Recognized Comm-B registers, named by their BDS code.
const (
	BDSDataLinkCap    BDSRegister = 0x10
	BDSIdentification BDSRegister = 0x20
	BDSACASAdvisory   BDSRegister = 0x30
	BDSVerticalIntent BDSRegister = 0x40
	BDSTrackTurn      BDSRegister = 0x50
	BDSHeadingSpeed   BDSRegister = 0x60
)

// BDS holds the decoded content of a DF20/DF21 MB field. Only the fields of
// the matched register are populated; status-gated quantities carry their
// own validity flags.
type BDS struct {
	Register BDSRegister

	// BDS 2,0
	Callsign string

	// BDS 4,0
	MCPAltitude int32
	MCPValid    bool
	FMSAltitude int32
	FMSValid    bool
	BaroSetting float64 // millibars
	BaroValid   bool

	// BDS 5,0
	Roll             float64 // degrees, negative = left wing down
	RollValid        bool
	TrueTrack        float64
	TrueTrackValid   bool
	GroundSpeed      uint16
	GroundSpeedValid bool
	TrackRate        float64 // degrees per second
	TrackRateValid   bool
	TAS              uint16
	TASValid         bool

	// BDS 6,0
	Heading           float64 // magnetic
	HeadingValid      bool
	IAS               uint16
	IASValid          bool
	Mach              float64
	MachValid         bool
	BaroAltRate       int32 // ft/min
	BaroAltRateValid  bool
	InertialAltRate   int32
	InertialRateValid bool
}

// DecodeMB classifies a 56-bit Comm-B payload by probing each candidate
// register and keeping the best match. Registers with a hard signature
// (1,0, 2,0 and 3,0) win outright; the status-gated reports 4,0/5,0/6,0 compete
// on how many of their status bits are set. A block that fits nothing
// returns nil and is ignored; the enclosing frame stays valid.
func DecodeMB(mb []byte) *BDS {
	if len(mb) < 7 {
		return nil
	}

	if bds := decodeBDS10(mb); bds != nil {
		return bds
	}
	if bds := decodeBDS20(mb); bds != nil {
		return bds
	}
	if bds := decodeBDS30(mb); bds != nil {
		return bds
	}

	var best *BDS
	bestScore := 0
	for _, try := range []func([]byte) (*BDS, int){decodeBDS40, decodeBDS50, decodeBDS60} {
		if bds, score := try(mb); bds != nil && score > bestScore {
			best, bestScore = bds, score
		}
	}
	return best
}

// decodeBDS10 matches the data link capability report: BDS code in the
// first byte, reserved bits 10-14 zero.
func decodeBDS10(mb []byte) *BDS {
	if mb[0] != 0x10 || mb[1]&0x7C != 0 {
		return nil
	}
	return &BDS{Register: BDSDataLinkCap}
}

// decodeBDS20 matches the aircraft identification report: BDS code 2,0
// followed by an 8-character callsign in the 6-bit alphabet.
func decodeBDS20(mb []byte) *BDS {
	if mb[0] != 0x20 {
		return nil
	}

	callsign, ok := decodeCallsign(mb[1:7], true)
	if !ok || callsign == "" {
		return nil
	}
	return &BDS{Register: BDSIdentification, Callsign: callsign}
}

// decodeBDS30 matches an ACAS active resolution advisory. The payload is
// not merged into aircraft state; recognizing it keeps the block from being
// misread as one of the status-gated reports.
func decodeBDS30(mb []byte) *BDS {
	if mb[0] != 0x30 {
		return nil
	}
	ara := uint16(mb[1])<<6 | uint16(mb[2]>>2)
	rac := mb[2]&0x03<<2 | mb[3]>>6
	if ara == 0 && rac == 0 {
		return nil
	}
	return &BDS{Register: BDSACASAdvisory}
}

// decodeBDS40 decodes the selected vertical intention report.
func decodeBDS40(mb []byte) (*BDS, int) {
	bds := &BDS{Register: BDSVerticalIntent}
	score := 0

	if mb[0]&0x80 != 0 {
		raw := int32(mb[0]&0x7F)<<5 | int32(mb[1]>>3)
		bds.MCPAltitude = raw * 16
		bds.MCPValid = true
		score++
	}
	if mb[1]&0x04 != 0 {
		raw := int32(mb[1]&0x03)<<10 | int32(mb[2])<<2 | int32(mb[3]>>6)
		bds.FMSAltitude = raw * 16
		bds.FMSValid = true
		score++
	}
	if mb[3]&0x20 != 0 {
		raw := int32(mb[3]&0x1F)<<7 | int32(mb[4]>>1)
		bds.BaroSetting = 800.0 + float64(raw)*0.1
		bds.BaroValid = true
		score++
	}

	if score == 0 {
		return nil, 0
	}
	if bds.MCPValid && bds.MCPAltitude > 50000 {
		return nil, 0
	}
	if bds.FMSValid && bds.FMSAltitude > 50000 {
		return nil, 0
	}
	if bds.BaroValid && (bds.BaroSetting < 850 || bds.BaroSetting > 1100) {
		return nil, 0
	}
	return bds, score
}

// decodeBDS50 decodes the track and turn report.
func decodeBDS50(mb []byte) (*BDS, int) {
	bds := &BDS{Register: BDSTrackTurn}
	score := 0

	if mb[0]&0x80 != 0 {
		raw := int32(mb[0]&0x7F)<<3 | int32(mb[1]>>5)
		if raw&0x200 != 0 {
			raw -= 0x400
		}
		bds.Roll = float64(raw) * 45.0 / 256.0
		bds.RollValid = true
		score++
	}
	if mb[1]&0x10 != 0 {
		raw := int32(mb[1]&0x0F)<<7 | int32(mb[2]>>1)
		bds.TrueTrack = float64(raw) * 90.0 / 512.0
		bds.TrueTrackValid = true
		score++
	}
	if mb[2]&0x01 != 0 {
		raw := uint16(mb[3])<<2 | uint16(mb[4]>>6)
		bds.GroundSpeed = raw * 2
		bds.GroundSpeedValid = true
		score++
	}
	if mb[4]&0x20 != 0 {
		raw := int32(mb[4]&0x1F)<<5 | int32(mb[5]>>3)
		if raw&0x200 != 0 {
			raw -= 0x400
		}
		bds.TrackRate = float64(raw) * 8.0 / 256.0
		bds.TrackRateValid = true
		score++
	}
	if mb[5]&0x04 != 0 {
		raw := uint16(mb[5]&0x03)<<8 | uint16(mb[6])
		bds.TAS = raw * 2
		bds.TASValid = true
		score++
	}

	if score < 2 {
		return nil, 0
	}
	if bds.RollValid && (bds.Roll > 50 || bds.Roll < -50) {
		return nil, 0
	}
	if bds.GroundSpeedValid && bds.GroundSpeed > 600 {
		return nil, 0
	}
	if bds.TASValid && bds.TAS > 500 {
		return nil, 0
	}
	return bds, score
}

// decodeBDS60 decodes the heading and speed report.
func decodeBDS60(mb []byte) (*BDS, int) {
	bds := &BDS{Register: BDSHeadingSpeed}
	score := 0

	if mb[0]&0x80 != 0 {
		raw := int32(mb[0]&0x7F)<<4 | int32(mb[1]>>4)
		bds.Heading = float64(raw) * 90.0 / 512.0
		bds.HeadingValid = true
		score++
	}
	if mb[1]&0x08 != 0 {
		raw := uint16(mb[1]&0x07)<<7 | uint16(mb[2]>>1)
		bds.IAS = raw
		bds.IASValid = true
		score++
	}
	if mb[2]&0x01 != 0 {
		raw := uint16(mb[3])<<2 | uint16(mb[4]>>6)
		bds.Mach = float64(raw) * 0.008
		bds.MachValid = true
		score++
	}
	if mb[4]&0x20 != 0 {
		raw := int32(mb[4]&0x1F)<<5 | int32(mb[5]>>3)
		if raw&0x200 != 0 {
			raw -= 0x400
		}
		bds.BaroAltRate = raw * 32
		bds.BaroAltRateValid = true
		score++
	}
	if mb[5]&0x04 != 0 {
		raw := int32(mb[5]&0x03)<<8 | int32(mb[6])
		if raw&0x200 != 0 {
			raw -= 0x400
		}
		bds.InertialAltRate = raw * 32
		bds.InertialRateValid = true
		score++
	}

	if score < 2 {
		return nil, 0
	}
	if bds.IASValid && bds.IAS > 500 {
		return nil, 0
	}
	if bds.MachValid && bds.Mach > 1.0 {
		return nil, 0
	}
	return bds, score
}
