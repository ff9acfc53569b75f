package demod

import "math"

// MagnitudeTable converts interleaved unsigned 8-bit I/Q sample pairs into
// 16-bit magnitudes through a precomputed 256x256 lookup table. Raw samples
// are centered at 127; the table scales the largest possible magnitude to
// the full uint16 range.
type MagnitudeTable struct {
	table []uint16
}

// NewMagnitudeTable builds the I/Q magnitude lookup table.
func NewMagnitudeTable() *MagnitudeTable {
	table := make([]uint16, 256*256)
	scale := 65535.0 / math.Sqrt(2*128.0*128.0)

	for i := 0; i < 256; i++ {
		di := float64(i - 127)
		for q := 0; q < 256; q++ {
			dq := float64(q - 127)
			table[i<<8|q] = uint16(math.Round(math.Sqrt(di*di+dq*dq) * scale))
		}
	}

	return &MagnitudeTable{table: table}
}

// Convert maps interleaved I/Q bytes to one magnitude per pair. The dst slice
// is reused when it has sufficient capacity. A trailing odd byte is ignored.
func (m *MagnitudeTable) Convert(data []byte, dst []uint16) []uint16 {
	n := len(data) / 2
	if cap(dst) < n {
		dst = make([]uint16, n)
	}
	dst = dst[:n]

	for j := 0; j < n; j++ {
		dst[j] = m.table[int(data[2*j])<<8|int(data[2*j+1])]
	}

	return dst
}
