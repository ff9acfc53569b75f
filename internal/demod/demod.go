package demod

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const (
	// LongFrameBits is the length of a long Mode S frame.
	LongFrameBits = 112

	// FullFrameSamples is the sample footprint of a preamble plus a long
	// frame: each bit cell occupies two samples at 2 Msps.
	FullFrameSamples = PreambleSamples + LongFrameBits*2
)

// RawFrame is a demodulated candidate frame, prior to CRC validation.
// Uncertain lists bit positions where the two cell samples nearly tied and
// the pulse-position decision is unreliable.
type RawFrame struct {
	Data      [14]byte
	Signal    uint16
	Uncertain []int
}

// Demodulator scans magnitude buffers for Mode S preambles and extracts
// pulse-position-modulated frames behind them.
type Demodulator struct {
	logger    *logrus.Logger
	preambles atomic.Uint64
}

// New creates a demodulator.
func New(logger *logrus.Logger) *Demodulator {
	return &Demodulator{logger: logger}
}

// Preambles returns the number of preamble hits seen so far. Most hits are
// noise and die at the CRC check; the counter is a signal-quality gauge.
func (d *Demodulator) Preambles() uint64 {
	return d.preambles.Load()
}

// Scan walks the magnitude buffer and invokes accept for every candidate
// frame found behind a preamble. accept returns the number of bits it
// consumed when the frame validated downstream, which moves the scan past
// the frame; returning 0 advances the scan by a single sample so that
// overlapping noise hits still get a chance.
func (d *Demodulator) Scan(m []uint16, accept func(*RawFrame) int) {
	for j := 0; j+FullFrameSamples <= len(m); j++ {
		signal, ok := checkPreamble(m[j : j+PreambleSamples])
		if !ok {
			continue
		}
		d.preambles.Add(1)

		frame := demodulateFrame(m[j+PreambleSamples:], signal)
		if bits := accept(frame); bits > 0 {
			j += PreambleSamples + bits*2 - 1
		}
	}
}

// demodulateFrame slices 112 bit cells starting at m[0]. A bit is 1 when the
// first half of its cell carries the higher magnitude.
func demodulateFrame(m []uint16, signal uint16) *RawFrame {
	frame := &RawFrame{Signal: signal}

	for k := 0; k < LongFrameBits; k++ {
		first := m[2*k]
		second := m[2*k+1]

		if first > second {
			frame.Data[k/8] |= 1 << (7 - k%8)
		}

		diff := int(first) - int(second)
		if diff < 0 {
			diff = -diff
		}
		avg := (int(first) + int(second)) / 2
		if avg == 0 {
			avg = 1
		}
		if diff*10 < avg {
			frame.Uncertain = append(frame.Uncertain, k)
		}
	}

	return frame
}
