// Package rtlsdr wraps an RTL2832-based dongle as a sample source for the
// decoder: interleaved unsigned 8-bit I/Q at 2 Msps, tuned to 1090 MHz.
package rtlsdr

import (
	"context"
	"errors"
	"fmt"

	rtl "github.com/jpoirier/gortlsdr"
	"github.com/sirupsen/logrus"
)

// ReadChunkBytes is the async read buffer size handed to librtlsdr.
const ReadChunkBytes = 16 * 16384

// Device is an opened RTL-SDR dongle.
type Device struct {
	ctx    *rtl.Context
	logger *logrus.Logger
	index  int
	isOpen bool
}

// Open opens the dongle at the given index.
func Open(index int, logger *logrus.Logger) (*Device, error) {
	count := rtl.GetDeviceCount()
	if count == 0 {
		return nil, errors.New("no RTL-SDR devices found")
	}
	if index >= count {
		return nil, fmt.Errorf("device index %d out of range (0-%d)", index, count-1)
	}

	ctx, err := rtl.Open(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %d: %w", index, err)
	}

	return &Device{ctx: ctx, logger: logger, index: index, isOpen: true}, nil
}

// Configure tunes the dongle. gain is in dB; zero selects automatic tuner
// gain, and agc additionally enables the RTL2832 digital AGC.
func (d *Device) Configure(frequency, sampleRate uint32, gain int, agc bool) error {
	if err := d.ctx.SetCenterFreq(int(frequency)); err != nil {
		return fmt.Errorf("failed to set frequency: %w", err)
	}
	if err := d.ctx.SetSampleRate(int(sampleRate)); err != nil {
		return fmt.Errorf("failed to set sample rate: %w", err)
	}

	if gain == 0 {
		if err := d.ctx.SetTunerGainMode(false); err != nil {
			return fmt.Errorf("failed to set auto gain: %w", err)
		}
	} else {
		if err := d.ctx.SetTunerGainMode(true); err != nil {
			return fmt.Errorf("failed to set manual gain mode: %w", err)
		}
		if err := d.ctx.SetTunerGain(gain * 10); err != nil {
			return fmt.Errorf("failed to set gain: %w", err)
		}
	}

	if err := d.ctx.SetAgcMode(agc); err != nil {
		return fmt.Errorf("failed to set AGC mode: %w", err)
	}
	if err := d.ctx.ResetBuffer(); err != nil {
		return fmt.Errorf("failed to reset buffer: %w", err)
	}

	d.logger.WithFields(logrus.Fields{
		"device_index": d.index,
		"frequency":    frequency,
		"sample_rate":  sampleRate,
		"gain":         gain,
		"agc":          agc,
	}).Info("RTL-SDR device configured")

	return nil
}

// Capture reads I/Q chunks into emit until the context is canceled. The
// librtlsdr callback buffer is reused, so each chunk is copied before being
// handed off.
func (d *Device) Capture(ctx context.Context, emit func([]byte)) error {
	if !d.isOpen {
		return errors.New("device not open")
	}

	callback := func(data []byte) {
		if ctx.Err() != nil {
			return
		}
		chunk := make([]byte, len(data))
		copy(chunk, data)
		emit(chunk)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.ctx.ReadAsync(callback, nil, 0, ReadChunkBytes)
	}()

	select {
	case <-ctx.Done():
		if err := d.ctx.CancelAsync(); err != nil {
			d.logger.WithError(err).Warn("Failed to cancel async read")
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("rtl-sdr read failed: %w", err)
		}
		return nil
	}
}

// Close releases the dongle.
func (d *Device) Close() error {
	if !d.isOpen {
		return nil
	}
	d.isOpen = false
	if err := d.ctx.Close(); err != nil {
		return fmt.Errorf("failed to close device: %w", err)
	}
	return nil
}
