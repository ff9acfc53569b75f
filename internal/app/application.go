package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ktauchathuranga/adsb/internal/demod"
	"github.com/ktauchathuranga/adsb/internal/modes"
	"github.com/ktauchathuranga/adsb/internal/rtlsdr"
	"github.com/ktauchathuranga/adsb/internal/track"
)

const (
	// chunkBytes is the producer read size: 128K I/Q pairs per chunk.
	chunkBytes = 16 * 16384

	// ringDepth bounds the raw sample ring between producer and decoder.
	ringDepth = 64

	// overlapBytes is carried between chunks so frames straddling a chunk
	// boundary still demodulate. One sample short of a full frame footprint:
	// anything already decodable was consumed in the previous pass.
	overlapBytes = (demod.FullFrameSamples - 1) * 2

	statsInterval = 30 * time.Second
)

// Application wires the decoder pipeline: sample acquisition on one
// goroutine, demodulation/decoding/tracking on another, with a bounded ring
// in between that sheds the oldest chunk under pressure.
type Application struct {
	cfg    Config
	logger *logrus.Logger

	magnitude   *demod.MagnitudeTable
	demodulator *demod.Demodulator
	whitelist   *track.Whitelist
	tracker     *track.Tracker
	decodeOpts  modes.Options

	chunks chan []byte

	droppedSamples atomic.Uint64
	accepted       atomic.Uint64
	corrected      atomic.Uint64
	crcRejected    atomic.Uint64
	unknownAddr    atomic.Uint64
}

// New builds the pipeline from a validated configuration.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logrus.New()
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if cfg.LogFile != "" {
		logger.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
		}))
	}

	whitelist := track.NewWhitelist()
	tracker := track.NewTracker(whitelist,
		time.Duration(cfg.TTLSeconds)*time.Second, cfg.MinMessages, logger)
	if cfg.HasReference() {
		tracker.SetReference(cfg.ReferenceLat, cfg.ReferenceLon)
	}

	return &Application{
		cfg:         cfg,
		logger:      logger,
		magnitude:   demod.NewMagnitudeTable(),
		demodulator: demod.New(logger),
		whitelist:   whitelist,
		tracker:     tracker,
		decodeOpts: modes.Options{
			CheckCRC:   cfg.CRCCheck,
			Correction: cfg.CorrectionMode(),
			Whitelist:  whitelist,
		},
		chunks: make(chan []byte, ringDepth),
	}, nil
}

// Tracker exposes the aircraft state to collaborators (servers, displays).
func (app *Application) Tracker() *track.Tracker {
	return app.tracker
}

// Logger returns the application logger.
func (app *Application) Logger() *logrus.Logger {
	return app.logger
}

// DroppedSamples returns the number of samples shed by the ring.
func (app *Application) DroppedSamples() uint64 {
	return app.droppedSamples.Load()
}

// Run drives the pipeline until the input is exhausted or the context is
// canceled. In-flight frames complete; cancellation is honored between
// chunk boundaries.
func (app *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.logger.WithFields(logrus.Fields{
		"version":      Version,
		"correction":   app.cfg.Correction,
		"min_messages": app.cfg.MinMessages,
		"ttl_seconds":  app.cfg.TTLSeconds,
	}).Info("Starting Mode S decoder")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		app.tracker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		app.reportStats(ctx)
	}()

	prodErr := make(chan error, 1)
	go func() {
		defer close(app.chunks)
		prodErr <- app.produce(ctx)
	}()

	app.consume(ctx)
	err := <-prodErr

	cancel()
	wg.Wait()
	app.logStats()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// produce feeds the ring from the configured source.
func (app *Application) produce(ctx context.Context) error {
	if app.cfg.InputFile != "" {
		return app.readFile(ctx)
	}
	return app.readDevice(ctx)
}

// readDevice captures from the RTL-SDR dongle until cancellation.
func (app *Application) readDevice(ctx context.Context) error {
	dev, err := rtlsdr.Open(app.cfg.DeviceIndex, app.logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.Configure(app.cfg.Frequency, app.cfg.SampleRate,
		app.cfg.Gain, app.cfg.EnableAGC); err != nil {
		return err
	}

	return dev.Capture(ctx, app.enqueue)
}

// readFile streams a recorded capture, or stdin for "-". With LoopFile the
// file is replayed indefinitely.
func (app *Application) readFile(ctx context.Context) error {
	name := app.cfg.InputFile

	for {
		var reader io.Reader
		var file *os.File
		if name == "-" {
			reader = os.Stdin
		} else {
			var err error
			file, err = os.Open(name)
			if err != nil {
				return fmt.Errorf("failed to open input file: %w", err)
			}
			reader = file
		}

		err := app.streamChunks(ctx, reader)
		if file != nil {
			file.Close()
		}
		if err != nil {
			return err
		}
		if !app.cfg.LoopFile || name == "-" {
			return nil
		}
		app.logger.Debug("Looping input file")
	}
}

// streamChunks reads the source to EOF, enqueueing fixed-size chunks.
func (app *Application) streamChunks(ctx context.Context, r io.Reader) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		chunk := make([]byte, chunkBytes)
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			app.enqueue(chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
	}
}

// enqueue places a chunk on the ring, shedding the oldest chunk when full.
// Losing samples beats stalling the radio.
func (app *Application) enqueue(chunk []byte) {
	select {
	case app.chunks <- chunk:
		return
	default:
	}

	select {
	case old := <-app.chunks:
		app.droppedSamples.Add(uint64(len(old) / 2))
	default:
	}
	select {
	case app.chunks <- chunk:
	default:
		app.droppedSamples.Add(uint64(len(chunk) / 2))
	}
}

// consume drains the ring: magnitude conversion, preamble scan, decode,
// track. The tail of each buffer is carried into the next so frames across
// chunk boundaries are not lost.
func (app *Application) consume(ctx context.Context) {
	buf := make([]byte, 0, overlapBytes+chunkBytes)
	var carry []byte
	var mags []uint16

	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-app.chunks:
			if !ok {
				return
			}

			buf = append(buf[:0], carry...)
			buf = append(buf, chunk...)

			mags = app.magnitude.Convert(buf, mags)
			app.demodulator.Scan(mags, app.handleFrame)

			if len(buf) > overlapBytes {
				carry = append(carry[:0], buf[len(buf)-overlapBytes:]...)
			} else {
				carry = append(carry[:0], buf...)
			}
		}
	}
}

// handleFrame validates one demodulated candidate. The return value tells
// the scanner how many bits to skip on acceptance.
func (app *Application) handleFrame(rf *demod.RawFrame) int {
	df := rf.Data[0] >> 3
	switch df {
	case 0, 4, 5, 11, 16, 17, 18, 20, 21:
	default:
		return 0
	}

	bits := modes.FrameBits(df)
	frame := modes.Decode(rf.Data[:bits/8], rf.Uncertain, app.decodeOpts)
	if !frame.CRCOk {
		if modes.EmbeddedICAO(frame.DF) {
			app.crcRejected.Add(1)
		} else {
			// Masked-parity recovery produced an address outside
			// the whitelist; dropped, never added.
			app.unknownAddr.Add(1)
		}
		return 0
	}

	frame.Signal = rf.Signal
	frame.Timestamp = time.Now()

	app.accepted.Add(1)
	if frame.Correction != modes.Corrected0 {
		app.corrected.Add(1)
	}

	app.tracker.Update(frame)
	app.emit(frame)
	return frame.Bits
}

// emit publishes one accepted frame in the configured output form.
func (app *Application) emit(f *modes.Frame) {
	switch {
	case app.cfg.Raw:
		fmt.Printf("*%s;\n", f.Hex())
	case app.cfg.OnlyAddr:
		fmt.Println(f.ICAOHex())
	default:
		app.logger.WithFields(logrus.Fields{
			"df":     f.DF,
			"icao":   f.ICAOHex(),
			"signal": f.Signal,
		}).Debug("Frame accepted")
	}
}

// reportStats logs pipeline counters periodically and dumps the visible
// aircraft at debug level.
func (app *Application) reportStats(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.logStats()
			for _, s := range app.tracker.Snapshot() {
				app.logger.WithFields(app.snapshotFields(s)).Debug("Aircraft")
			}
		}
	}
}

// snapshotFields renders one aircraft for the log, honoring the units
// setting (presentation only).
func (app *Application) snapshotFields(s track.Snapshot) logrus.Fields {
	fields := logrus.Fields{
		"icao":     s.ICAO,
		"messages": s.Messages,
	}
	if s.Callsign != "" {
		fields["callsign"] = s.Callsign
	}
	if s.SquawkValid {
		fields["squawk"] = fmt.Sprintf("%04d", s.Squawk)
	}
	if s.AltitudeValid {
		if app.cfg.Units == "metric" {
			fields["altitude_m"] = int(float64(s.Altitude) / 3.2808)
		} else {
			fields["altitude_ft"] = s.Altitude
		}
	}
	if s.GroundSpeedValid {
		fields["speed_kt"] = s.GroundSpeed
	}
	if s.TrackValid {
		fields["track"] = fmt.Sprintf("%.0f", s.Track)
	}
	if s.PositionValid {
		fields["lat"] = fmt.Sprintf("%.4f", s.Lat)
		fields["lon"] = fmt.Sprintf("%.4f", s.Lon)
	}
	if s.DistanceValid {
		fields["distance_km"] = fmt.Sprintf("%.1f", s.DistanceKm)
		fields["bearing"] = fmt.Sprintf("%.0f", s.Bearing)
	}
	if s.Emergency {
		fields["emergency"] = true
	}
	return fields
}

// logStats emits the counter summary.
func (app *Application) logStats() {
	app.logger.WithFields(logrus.Fields{
		"preambles":       humanize.Comma(int64(app.demodulator.Preambles())),
		"accepted":        humanize.Comma(int64(app.accepted.Load())),
		"corrected":       app.corrected.Load(),
		"crc_rejected":    humanize.Comma(int64(app.crcRejected.Load())),
		"unknown_icao":    humanize.Comma(int64(app.unknownAddr.Load())),
		"dropped_samples": humanize.Comma(int64(app.droppedSamples.Load())),
		"aircraft":        app.tracker.Len(),
	}).Info("Decoder statistics")
}
