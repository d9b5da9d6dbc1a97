package stripclust

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, float32(3), cfg.Thresholds.Seed)
	assert.Equal(t, float32(2), cfg.Thresholds.Adjacent)
	assert.Equal(t, float32(5), cfg.Thresholds.Cluster)
	assert.Equal(t, 600000, cfg.MaxStrips)
	assert.Equal(t, 4, cfg.Partitions)
	assert.Equal(t, BackendCPU, cfg.Backend)
	assert.Equal(t, ChargeRaw, cfg.Thresholds.Charge)
	assert.Equal(t, BadExclude, cfg.Thresholds.BadChannels)
}

func TestConfigValidate(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative seed", func(c *Config) { c.Thresholds.Seed = -1 }},
		{"NaN cluster", func(c *Config) { c.Thresholds.Cluster = nan }},
		{"infinite adjacent", func(c *Config) { c.Thresholds.Adjacent = float32(math.Inf(1)) }},
		{"seed below adjacent", func(c *Config) { c.Thresholds.Seed = 1 }},
		{"unknown charge", func(c *Config) { c.Thresholds.Charge = "calibrated" }},
		{"unknown bad policy", func(c *Config) { c.Thresholds.BadChannels = "ignore" }},
		{"zero capacity", func(c *Config) { c.MaxStrips = 0 }},
		{"zero width", func(c *Config) { c.MaxClusterWidth = 0 }},
		{"zero partitions", func(c *Config) { c.Partitions = 0 }},
		{"negative device memory", func(c *Config) { c.DeviceMemoryMB = -1 }},
		{"unknown backend", func(c *Config) { c.Backend = "fpga" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			assert.True(t, IsConfigError(err), "got %v", err)

			_, err = NewBackend(cfg)
			assert.True(t, IsConfigError(err))
		})
	}
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, "clust.yaml", `
thresholds:
  seed: 4.5
  charge: gain
  bad_channels: seed-only
partitions: 8
backend: stream
device_memory_mb: 64
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, float32(4.5), cfg.Thresholds.Seed)
	assert.Equal(t, float32(2), cfg.Thresholds.Adjacent, "omitted fields keep defaults")
	assert.Equal(t, ChargeGain, cfg.Thresholds.Charge)
	assert.Equal(t, BadSeedOnly, cfg.Thresholds.BadChannels)
	assert.Equal(t, 8, cfg.Partitions)
	assert.Equal(t, BackendStream, cfg.Backend)
	assert.Equal(t, 64, cfg.DeviceMemoryMB)
	assert.Equal(t, DefaultMaxStrips, cfg.MaxStrips)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "clust.json", "{}"))
	assert.True(t, IsConfigError(err))

	_, err = LoadConfig(writeConfig(t, "clust.yaml", "thresholds: [1, 2"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "clust.yaml", "thresholds:\n  seed: 1\n"))
	assert.True(t, IsConfigError(err), "seed below adjacent")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
