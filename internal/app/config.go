package app

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ktauchathuranga/adsb/internal/modes"
)

// Default tuning constants.
const (
	DefaultFrequency  = 1090000000 // 1090 MHz
	DefaultSampleRate = 2000000    // 2 Msps, one magnitude sample per half microsecond
	DefaultGain       = 40
	DefaultTTL        = 60
	DefaultMinMsgs    = 2
)

// Config holds the decoder core configuration plus the collaborator knobs
// the CLI exposes (device tuning, input file, logging).
type Config struct {
	// Input
	DeviceIndex int    `yaml:"device_index"`
	Frequency   uint32 `yaml:"frequency"`
	SampleRate  uint32 `yaml:"sample_rate"`
	Gain        int    `yaml:"gain"`
	EnableAGC   bool   `yaml:"enable_agc"`
	InputFile   string `yaml:"input_file"` // "-" reads stdin
	LoopFile    bool   `yaml:"loop"`

	// Decoding
	Correction  string `yaml:"correction"` // none, one_bit, two_bit
	CRCCheck    bool   `yaml:"crc_check"`
	MinMessages uint64 `yaml:"min_messages"`
	TTLSeconds  int    `yaml:"ttl_seconds"`

	// Receiver position reference; NaN means unset.
	ReferenceLat float64 `yaml:"reference_lat"`
	ReferenceLon float64 `yaml:"reference_lon"`

	// Output
	Units    string `yaml:"units"` // metric, imperial
	Raw      bool   `yaml:"raw"`
	OnlyAddr bool   `yaml:"only_addr"`
	Verbose  bool   `yaml:"verbose"`

	// Daemon log rotation; empty disables the file sink.
	LogFile       string `yaml:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`

	ShowVersion bool `yaml:"-"`
}

// DefaultConfig returns the configuration the CLI starts from.
func DefaultConfig() Config {
	return Config{
		Frequency:     DefaultFrequency,
		SampleRate:    DefaultSampleRate,
		Gain:          DefaultGain,
		Correction:    "one_bit",
		CRCCheck:      true,
		MinMessages:   DefaultMinMsgs,
		TTLSeconds:    DefaultTTL,
		ReferenceLat:  math.NaN(),
		ReferenceLon:  math.NaN(),
		Units:         "imperial",
		LogMaxSizeMB:  50,
		LogMaxBackups: 3,
		LogMaxAgeDays: 7,
	}
}

// LoadFile overlays YAML settings from path onto the config.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate rejects inconsistent settings before the pipeline starts.
func (c *Config) Validate() error {
	if _, err := modes.ParseCorrectionMode(c.Correction); err != nil {
		return err
	}
	if c.Units != "metric" && c.Units != "imperial" {
		return fmt.Errorf("unknown units %q", c.Units)
	}
	if c.MinMessages < 1 {
		return fmt.Errorf("min_messages must be at least 1")
	}
	if c.TTLSeconds < 1 {
		return fmt.Errorf("ttl_seconds must be at least 1")
	}
	if c.HasReference() != (!math.IsNaN(c.ReferenceLat) || !math.IsNaN(c.ReferenceLon)) {
		return fmt.Errorf("reference position requires both latitude and longitude")
	}
	if c.HasReference() {
		if c.ReferenceLat < -90 || c.ReferenceLat > 90 {
			return fmt.Errorf("reference latitude out of range")
		}
		if c.ReferenceLon < -180 || c.ReferenceLon > 180 {
			return fmt.Errorf("reference longitude out of range")
		}
	}
	return nil
}

// HasReference reports whether a receiver position was supplied.
func (c *Config) HasReference() bool {
	return !math.IsNaN(c.ReferenceLat) && !math.IsNaN(c.ReferenceLon)
}

// CorrectionMode returns the parsed correction setting. Validate must have
// accepted the config first.
func (c *Config) CorrectionMode() modes.CorrectionMode {
	mode, _ := modes.ParseCorrectionMode(c.Correction)
	return mode
}
