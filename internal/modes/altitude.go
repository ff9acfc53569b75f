package modes

// grayToBinary converts a reflected Gray code of up to 32 bits.
func grayToBinary(g uint32) uint32 {
	b := g
	b ^= b >> 16
	b ^= b >> 8
	b ^= b >> 4
	b ^= b >> 2
	b ^= b >> 1
	return b
}

// gillhamAltitude decodes a Mode C Gillham code into feet. The code is the
// 11-bit reordering D2 D4 A1 A2 A4 B1 B2 B4 C1 C2 C4 (MSB first): the upper
// eight bits Gray-encode the 500 ft band, the lower three Gray-encode the
// 100 ft steps within it, reflected on odd bands.
func gillhamAltitude(code uint16) (int32, bool) {
	fiveHundreds := grayToBinary(uint32(code) >> 3)
	oneHundreds := grayToBinary(uint32(code) & 0x07)

	// C-bit patterns 0, 5 and 6 are not assigned; 7 aliases 5.
	switch oneHundreds {
	case 0, 5, 6:
		return 0, false
	case 7:
		oneHundreds = 5
	}

	if fiveHundreds&1 != 0 {
		oneHundreds = 6 - oneHundreds
	}

	alt := int32(fiveHundreds)*500 + int32(oneHundreds)*100 - 1300
	if alt < -1200 || alt > 126700 {
		return 0, false
	}
	return alt, true
}

// gillhamReorder maps an interleaved altitude code (C1 A1 C2 A2 C4 A4 B1 B2
// D2 B4 D4, the 13-bit field with M and Q dropped) into the Gillham bit
// order gillhamAltitude expects.
func gillhamReorder(c uint16) uint16 {
	c1 := c >> 10 & 1
	a1 := c >> 9 & 1
	c2 := c >> 8 & 1
	a2 := c >> 7 & 1
	c4 := c >> 6 & 1
	a4 := c >> 5 & 1
	b1 := c >> 4 & 1
	b2 := c >> 3 & 1
	d2 := c >> 2 & 1
	b4 := c >> 1 & 1
	d4 := c & 1

	return d2<<10 | d4<<9 | a1<<8 | a2<<7 | a4<<6 | b1<<5 | b2<<4 | b4<<3 |
		c1<<2 | c2<<1 | c4
}

// decodeAC13 decodes the 13-bit altitude field of DF0/4/16/20 replies
// (frame bits 19-31). Field order is C1 A1 C2 A2 C4 A4 M B1 Q B2 D2 B4 D4;
// meters is set when the M bit selects metric units.
func decodeAC13(msg []byte) (alt int32, meters, ok bool) {
	code := uint16(msg[2]&0x1F)<<8 | uint16(msg[3])

	if code&0x40 != 0 { // M: metric altitude, 25 m resolution
		n := int32(code>>7)<<6 | int32(code>>5&1)<<5 | int32(code&0x1F)
		return n * 25, true, true
	}

	if code&0x10 != 0 { // Q: 25 ft resolution, M and Q squeezed out
		n := int32(code>>7)<<5 | int32(code>>5&1)<<4 | int32(code&0x0F)
		return n*25 - 1000, false, true
	}

	interleaved := code>>7<<5 | code>>5&1<<4 | code&0x0F
	if alt, ok := gillhamAltitude(gillhamReorder(interleaved)); ok {
		return alt, false, true
	}
	return 0, false, false
}

// decodeAC12 decodes the 12-bit altitude field of airborne-position
// extended squitters (ME bits 8-19). Same layout as AC13 minus the M bit:
// C1 A1 C2 A2 C4 A4 B1 Q B2 D2 B4 D4.
func decodeAC12(msg []byte) (int32, bool) {
	code := uint16(msg[5])<<4 | uint16(msg[6])>>4

	if code&0x10 != 0 { // Q
		n := int32(code>>5)<<4 | int32(code&0x0F)
		return n*25 - 1000, true
	}

	interleaved := code>>5<<4 | code&0x0F
	return gillhamAltitude(gillhamReorder(interleaved))
}
