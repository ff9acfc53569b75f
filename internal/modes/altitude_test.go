package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binToGray(b uint32) uint32 {
	return b ^ b>>1
}

// gillhamEncode builds the Gillham code for a 100 ft altitude, the inverse
// of gillhamAltitude.
func gillhamEncode(t *testing.T, altFt int32) uint16 {
	t.Helper()
	require.Zero(t, (altFt+1300)%100, "Gillham altitudes are 100 ft multiples")

	total := (altFt + 1300) / 100
	require.Greater(t, total, int32(0))

	five := (total - 1) / 5
	one := total - five*5
	if five&1 != 0 {
		one = 6 - one
	}
	if one == 5 {
		one = 7
	}
	return uint16(binToGray(uint32(five))<<3 | binToGray(uint32(one)))
}

// TestGrayToBinary pins the conversion on the first Gray codes.
func TestGrayToBinary(t *testing.T) {
	expected := []uint32{0, 1, 3, 2, 6, 7, 5, 4, 12, 13, 15, 14, 10, 11, 9, 8}
	for b, g := range expected {
		assert.Equal(t, uint32(b), grayToBinary(g))
	}
}

// TestGillhamAltitude checks the Mode C reference altitudes and full
// round-trip coverage of the encodable range.
func TestGillhamAltitude(t *testing.T) {
	for _, alt := range []int32{-1000, 0, 1000, 10000, 50000} {
		got, ok := gillhamAltitude(gillhamEncode(t, alt))
		require.True(t, ok, "altitude %d not decodable", alt)
		assert.Equal(t, alt, got)
	}

	t.Run("round trip", func(t *testing.T) {
		for alt := int32(-1200); alt <= 50000; alt += 100 {
			got, ok := gillhamAltitude(gillhamEncode(t, alt))
			require.True(t, ok, "altitude %d", alt)
			require.Equal(t, alt, got)
		}
	})

	t.Run("invalid codes rejected", func(t *testing.T) {
		_, ok := gillhamAltitude(0) // C bits all zero
		assert.False(t, ok)
	})
}

// TestDecodeAC13 covers the Q-bit, Gillham and metric variants of the
// 13-bit altitude field.
func TestDecodeAC13(t *testing.T) {
	t.Run("q-bit 36000 ft", func(t *testing.T) {
		// Captured DF4 2000171806A983.
		alt, meters, ok := decodeAC13([]byte{0x20, 0x00, 0x17, 0x18})
		require.True(t, ok)
		assert.False(t, meters)
		assert.Equal(t, int32(36000), alt)
	})

	t.Run("q-bit N=42", func(t *testing.T) {
		alt, meters, ok := decodeAC13([]byte{0x20, 0x00, 0x00, 0x9A})
		require.True(t, ok)
		assert.False(t, meters)
		assert.Equal(t, int32(42*25-1000), alt)
	})

	t.Run("metric", func(t *testing.T) {
		// M bit alone: N = 0, 0 meters.
		alt, meters, ok := decodeAC13([]byte{0x20, 0x00, 0x00, 0x40})
		require.True(t, ok)
		assert.True(t, meters)
		assert.Equal(t, int32(0), alt)
	})

	t.Run("gillham", func(t *testing.T) {
		// 5500 ft: total=68, five=13, one=3 -> odd band reflects to 3.
		code := gillhamEncode(t, 5500)
		// Scatter the interleaved bits into the frame layout.
		c1 := code >> 2 & 1
		c2 := code >> 1 & 1
		c4 := code & 1
		a1 := code >> 8 & 1
		a2 := code >> 7 & 1
		a4 := code >> 6 & 1
		b1 := code >> 5 & 1
		b2 := code >> 4 & 1
		b4 := code >> 3 & 1
		d2 := code >> 10 & 1
		d4 := code >> 9 & 1

		msg2 := byte(c1<<4 | a1<<3 | c2<<2 | a2<<1 | c4)
		msg3 := byte(a4<<7 | b1<<5 | b2<<3 | d2<<2 | b4<<1 | d4)

		alt, meters, ok := decodeAC13([]byte{0x20, 0x00, msg2, msg3})
		require.True(t, ok)
		assert.False(t, meters)
		assert.Equal(t, int32(5500), alt)
	})
}

// TestDecodeAC12 decodes the altitude field of the canonical position pair.
func TestDecodeAC12(t *testing.T) {
	alt, ok := decodeAC12(frameFromHex(t, "8D40621D58C382D690C8AC2863A7"))
	require.True(t, ok)
	assert.Equal(t, int32(38000), alt)

	alt, ok = decodeAC12(frameFromHex(t, "8D40621D58C386435CC412692AD6"))
	require.True(t, ok)
	assert.Equal(t, int32(38000), alt)
}
