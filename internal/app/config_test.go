package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktauchathuranga/adsb/internal/modes"
)

// TestDefaultConfig validates the shipped defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, modes.CorrectOneBit, cfg.CorrectionMode())
	assert.True(t, cfg.CRCCheck)
	assert.Equal(t, uint64(2), cfg.MinMessages)
	assert.Equal(t, 60, cfg.TTLSeconds)
	assert.False(t, cfg.HasReference())
}

// TestConfigValidation rejects inconsistent settings.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad correction", mutate: func(c *Config) { c.Correction = "three_bit" }},
		{name: "bad units", mutate: func(c *Config) { c.Units = "furlongs" }},
		{name: "zero min messages", mutate: func(c *Config) { c.MinMessages = 0 }},
		{name: "zero ttl", mutate: func(c *Config) { c.TTLSeconds = 0 }},
		{name: "lat without lon", mutate: func(c *Config) { c.ReferenceLat = 52.3 }},
		{name: "lat out of range", mutate: func(c *Config) {
			c.ReferenceLat = 91
			c.ReferenceLon = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestConfigReference accepts a complete receiver position.
func TestConfigReference(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReferenceLat = 52.3
	cfg.ReferenceLon = 4.9
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.HasReference())
}

// TestConfigLoadFile overlays YAML settings onto the defaults.
func TestConfigLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adsb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
correction: two_bit
min_messages: 3
ttl_seconds: 120
reference_lat: 52.3
reference_lon: 4.9
units: metric
`), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFile(path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, modes.CorrectTwoBit, cfg.CorrectionMode())
	assert.Equal(t, uint64(3), cfg.MinMessages)
	assert.Equal(t, 120, cfg.TTLSeconds)
	assert.True(t, cfg.HasReference())
	assert.Equal(t, "metric", cfg.Units)
	// Untouched fields keep their defaults.
	assert.True(t, cfg.CRCCheck)
	assert.Equal(t, uint32(DefaultFrequency), cfg.Frequency)
}

// TestConfigLoadFileMissing surfaces the read error.
func TestConfigLoadFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")))
}
