package modes

import (
	"math"
	"strings"
)

// callsignCharset maps 6-bit identification characters; unassigned codes
// render as '?'.
const callsignCharset = " ABCDEFGHIJKLMNOPQRSTUVWXYZ????? ???????????????0123456789??????"

// Options control checksum validation and repair.
type Options struct {
	// CheckCRC accepts frames regardless of checksum when false.
	CheckCRC bool
	// Correction selects how much bit repair to attempt.
	Correction CorrectionMode
	// Whitelist validates masked-parity ICAO recoveries. When nil every
	// masked-parity frame is rejected.
	Whitelist AddressBook
}

// Decode parses a demodulated frame, validating and optionally repairing
// the checksum. uncertain lists bit positions the demodulator flagged as
// unreliable; two-bit repair restricts its search to them when present.
// The returned frame always carries whatever fields could be parsed, with
// CRCOk deciding whether it should be trusted.
func Decode(raw []byte, uncertain []int, opts Options) *Frame {
	f := &Frame{}
	copy(f.Raw[:], raw)
	f.DF = f.Raw[0] >> 3
	f.Bits = FrameBits(f.DF)

	msg := f.Raw[:f.Bits/8]
	f.CRC = ExtractCRC(msg, f.Bits)

	if EmbeddedICAO(f.DF) {
		f.validateEmbedded(msg, uncertain, opts)
	} else {
		f.validateMasked(msg, opts)
	}

	if !opts.CheckCRC {
		f.CRCOk = true
	}

	f.parseFields(msg)
	return f
}

// validateEmbedded checks DF11/17/18 frames, whose parity must match the
// checksum exactly, attempting bit repair when enabled.
func (f *Frame) validateEmbedded(msg []byte, uncertain []int, opts Options) {
	accept := func(m []byte) bool {
		return Checksum(m, f.Bits) == ExtractCRC(m, f.Bits)
	}

	if accept(msg) {
		f.CRCOk = true
		return
	}
	if opts.Correction == CorrectNone {
		return
	}

	if _, ok := FixSingleBit(msg, f.Bits, accept); ok {
		f.CRCOk = true
		f.Correction = Corrected1
	} else if opts.Correction == CorrectTwoBit {
		if _, _, ok := FixTwoBits(msg, f.Bits, uncertain, accept); ok {
			f.CRCOk = true
			f.Correction = Corrected2
		}
	}
	if f.CRCOk {
		f.CRC = ExtractCRC(msg, f.Bits)
	}
}

// validateMasked handles DF0/4/5/16/20/21 frames, where the transmitter
// overlays its address on the parity field. Any bit pattern recovers some
// 24-bit candidate, so only candidates already seen in self-identifying
// frames are trusted. Repair is limited to a single bit: with the address
// book as the sole acceptance test, every extra flip multiplies the odds of
// colliding with a legitimate address.
func (f *Frame) validateMasked(msg []byte, opts Options) {
	f.ICAO = ParityICAO(msg, f.Bits)
	if opts.Whitelist == nil {
		return
	}

	if opts.Whitelist.Contains(f.ICAO) {
		f.CRCOk = true
		return
	}
	if opts.Correction == CorrectNone {
		return
	}

	accept := func(m []byte) bool {
		return opts.Whitelist.Contains(ParityICAO(m, f.Bits))
	}
	if _, ok := FixSingleBit(msg, f.Bits, accept); ok {
		f.ICAO = ParityICAO(msg, f.Bits)
		f.CRCOk = true
		f.Correction = Corrected1
	}
}

// parseFields extracts the DF-specific payload. Repairs above may have
// rewritten any byte, so everything is re-read from the frame buffer.
func (f *Frame) parseFields(msg []byte) {
	f.DF = msg[0] >> 3

	switch f.DF {
	case 11:
		f.CA = msg[0] & 0x07
		f.ICAO = uint32(msg[1])<<16 | uint32(msg[2])<<8 | uint32(msg[3])
		f.OnGround = f.CA == 4

	case 17, 18:
		f.CA = msg[0] & 0x07
		f.CF = f.CA
		f.ICAO = uint32(msg[1])<<16 | uint32(msg[2])<<8 | uint32(msg[3])
		// DF18 control fields above 1 are TIS-B and rebroadcast
		// variants; they update liveness only.
		if f.DF == 17 || f.CF <= 1 {
			f.parseExtendedSquitter(msg)
		}
		if f.DF == 17 {
			f.OnGround = f.OnGround || f.CA == 4
		}

	case 0, 16:
		f.Altitude, f.AltitudeMeters, f.AltitudeValid = decodeAC13(msg)

	case 4, 20:
		f.parseFlightStatus(msg)
		f.Altitude, f.AltitudeMeters, f.AltitudeValid = decodeAC13(msg)
		if f.DF == 20 {
			f.BDS = DecodeMB(msg[4:11])
		}

	case 5, 21:
		f.parseFlightStatus(msg)
		f.Squawk = decodeIdentity(msg)
		f.SquawkValid = true
		if f.DF == 21 {
			f.BDS = DecodeMB(msg[4:11])
		}
	}
}

// parseFlightStatus reads the FS/DR/UM fields shared by DF4/5/20/21.
func (f *Frame) parseFlightStatus(msg []byte) {
	f.FS = msg[0] & 0x07
	f.DR = msg[1] >> 3 & 0x1F
	f.UM = msg[1]&0x07<<3 | msg[2]>>5
	f.OnGround = f.FS == 1 || f.FS == 3
}

// parseExtendedSquitter dispatches on the 5-bit type code of the ME field.
func (f *Frame) parseExtendedSquitter(msg []byte) {
	f.TC = msg[4] >> 3
	f.Subtype = msg[4] & 0x07

	switch {
	case f.TC >= 1 && f.TC <= 4:
		f.Callsign, _ = decodeCallsign(msg[5:11], false)

	case f.TC >= 5 && f.TC <= 8:
		// Surface position: same CPR fields as airborne, no altitude.
		f.OnGround = true
		f.Surface = true
		f.parseCPR(msg)

	case (f.TC >= 9 && f.TC <= 18) || (f.TC >= 20 && f.TC <= 22):
		f.Altitude, f.AltitudeValid = decodeAC12(msg)
		f.parseCPR(msg)

	case f.TC == 19 && f.Subtype >= 1 && f.Subtype <= 4:
		f.parseVelocity(msg)

	case f.TC == 28 && f.Subtype == 1:
		f.Emergency = msg[5] >> 5
	}
}

// parseCPR extracts the format flag and the two 17-bit position fields.
func (f *Frame) parseCPR(msg []byte) {
	f.CPRValid = true
	f.CPROdd = msg[6]&0x04 != 0
	f.CPRUTCTime = msg[6]&0x08 != 0
	f.CPRLat = uint32(msg[6]&0x03)<<15 | uint32(msg[7])<<7 | uint32(msg[8])>>1
	f.CPRLon = uint32(msg[8]&0x01)<<16 | uint32(msg[9])<<8 | uint32(msg[10])
}

// parseVelocity decodes the TC19 subtypes: ground-referenced velocity over
// ground (1/2) and air-referenced heading/airspeed (3/4). Subtypes 2 and 4
// are the supersonic variants with a 4x speed scale.
func (f *Frame) parseVelocity(msg []byte) {
	scale := int32(1)
	if f.Subtype == 2 || f.Subtype == 4 {
		scale = 4
	}

	if f.Subtype == 1 || f.Subtype == 2 {
		ewRaw := int32(msg[5]&0x03)<<8 | int32(msg[6])
		nsRaw := int32(msg[7]&0x7F)<<3 | int32(msg[8]&0xE0)>>5

		// A zero raw value means no data on that axis.
		if ewRaw != 0 && nsRaw != 0 {
			vew := (ewRaw - 1) * scale
			if msg[5]&0x04 != 0 {
				vew = -vew
			}
			vns := (nsRaw - 1) * scale
			if msg[7]&0x80 != 0 {
				vns = -vns
			}

			gs := math.Sqrt(float64(vew)*float64(vew) + float64(vns)*float64(vns))
			f.GroundSpeed = uint16(gs + 0.5)
			f.GroundSpeedValid = true

			if f.GroundSpeed > 0 {
				track := math.Atan2(float64(vew), float64(vns)) * 180 / math.Pi
				if track < 0 {
					track += 360
				}
				f.Track = track
				f.TrackValid = true
			}
		}
	} else {
		if msg[5]&0x04 != 0 {
			raw := int32(msg[5]&0x03)<<8 | int32(msg[6])
			f.Heading = float64(raw) * 360 / 1024
			f.HeadingValid = true
		}
		asRaw := int32(msg[7]&0x7F)<<3 | int32(msg[8]&0xE0)>>5
		if asRaw != 0 {
			f.Airspeed = uint16(asRaw * scale)
			f.AirspeedValid = true
			f.AirspeedTAS = msg[7]&0x80 != 0
		}
	}

	// Vertical rate occupies the same bits in all four subtypes.
	vrRaw := int32(msg[8]&0x07)<<6 | int32(msg[9]&0xFC)>>2
	if vrRaw != 0 {
		rate := (vrRaw - 1) * 64
		if msg[8]&0x08 != 0 {
			rate = -rate
		}
		f.VertRate = rate
		f.VertRateValid = true
		f.VertRateGeo = msg[8]&0x10 == 0
	}
}

// decodeIdentity reconstructs the Mode A squawk from the interleaved 13-bit
// identity field (C1 A1 C2 A2 C4 A4 _ B1 D1 B2 D2 B4 D4).
func decodeIdentity(msg []byte) uint16 {
	a := uint16(msg[3]&0x80)>>5 | uint16(msg[2]&0x02) | uint16(msg[2]&0x08)>>3
	b := uint16(msg[3]&0x02)<<1 | uint16(msg[3]&0x08)>>2 | uint16(msg[3]&0x20)>>5
	c := uint16(msg[2]&0x01)<<2 | uint16(msg[2]&0x04)>>1 | uint16(msg[2]&0x10)>>4
	d := uint16(msg[3]&0x01)<<2 | uint16(msg[3]&0x04)>>1 | uint16(msg[3]&0x10)>>4
	return a*1000 + b*100 + c*10 + d
}

// decodeCallsign unpacks eight 6-bit characters. In strict mode (Comm-B
// identification, where the register match is probabilistic) any unassigned
// code rejects the block; extended squitters keep the '?' placeholder.
func decodeCallsign(data []byte, strict bool) (string, bool) {
	codes := [8]byte{
		data[0] >> 2,
		data[0]&0x03<<4 | data[1]>>4,
		data[1]&0x0F<<2 | data[2]>>6,
		data[2] & 0x3F,
		data[3] >> 2,
		data[3]&0x03<<4 | data[4]>>4,
		data[4]&0x0F<<2 | data[5]>>6,
		data[5] & 0x3F,
	}

	var sb strings.Builder
	for _, code := range codes {
		ch := callsignCharset[code]
		if strict && ch == '?' {
			return "", false
		}
		sb.WriteByte(ch)
	}

	return strings.TrimRight(sb.String(), " "), true
}
