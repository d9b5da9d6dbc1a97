package stripclust

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Default thresholds, in units of strip noise.
const (
	DefaultSeedThreshold     = 3.0
	DefaultAdjacentThreshold = 2.0
	DefaultClusterThreshold  = 5.0
)

// Capacity defaults
const (
	DefaultMaxStrips       = 600000
	DefaultPartitions      = 4
	DefaultMaxClusterWidth = 256
)

// ChargeMode selects how strip charge enters the cluster significance.
type ChargeMode string

const (
	// ChargeRaw sums uncalibrated ADC counts.
	ChargeRaw ChargeMode = "raw"
	// ChargeGain sums adc*gain.
	ChargeGain ChargeMode = "gain"
)

// BadChannelPolicy selects where bad-channel strips are excluded.
type BadChannelPolicy string

const (
	// BadExclude keeps bad strips out of both seeding and growth.
	BadExclude BadChannelPolicy = "exclude"
	// BadSeedOnly keeps bad strips from seeding but lets them join a cluster.
	BadSeedOnly BadChannelPolicy = "seed-only"
)

// BackendKind names an execution backend.
type BackendKind string

const (
	BackendCPU         BackendKind = "cpu"
	BackendCPUParallel BackendKind = "cpu-parallel"
	BackendStream      BackendKind = "stream"
)

// Thresholds holds the clustering cuts. Every comparison is strict: a ratio
// exactly equal to its threshold does not pass.
type Thresholds struct {
	Seed        float32          `yaml:"seed"`
	Adjacent    float32          `yaml:"adjacent"`
	Cluster     float32          `yaml:"cluster"`
	Charge      ChargeMode       `yaml:"charge"`
	BadChannels BadChannelPolicy `yaml:"bad_channels"`
}

// Config is the full configuration of a clustering pass.
type Config struct {
	Thresholds      Thresholds  `yaml:"thresholds"`
	MaxStrips       int         `yaml:"max_strips"`
	MaxClusterWidth int         `yaml:"max_cluster_width"`
	Partitions      int         `yaml:"partitions"`
	Backend         BackendKind `yaml:"backend"`
	// DeviceMemoryMB caps stream backend allocations, 0 for unlimited.
	DeviceMemoryMB int  `yaml:"device_memory_mb"`
	Verbose        bool `yaml:"verbose"`

	Logger logrus.FieldLogger `yaml:"-"`
}

// DefaultThresholds returns the standard strip clustering cuts.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Seed:        DefaultSeedThreshold,
		Adjacent:    DefaultAdjacentThreshold,
		Cluster:     DefaultClusterThreshold,
		Charge:      ChargeRaw,
		BadChannels: BadExclude,
	}
}

// DefaultConfig returns a configuration with every field set.
func DefaultConfig() Config {
	return Config{
		Thresholds:      DefaultThresholds(),
		MaxStrips:       DefaultMaxStrips,
		MaxClusterWidth: DefaultMaxClusterWidth,
		Partitions:      DefaultPartitions,
		Backend:         BackendCPU,
		Logger:          logrus.StandardLogger(),
	}
}

// LoadConfig loads a Config from a YAML file. Fields omitted from the file
// keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return cfg, NewConfigError("LoadConfig", fmt.Sprintf("config file must have .yaml extension, got %q", ext))
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return cfg, NewConfigError("LoadConfig", fmt.Sprintf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize))
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.MaxStrips <= 0 {
		return NewConfigError("Validate", fmt.Sprintf("max_strips must be positive, got %d", c.MaxStrips))
	}
	if c.MaxClusterWidth <= 0 {
		return NewConfigError("Validate", fmt.Sprintf("max_cluster_width must be positive, got %d", c.MaxClusterWidth))
	}
	if c.Partitions <= 0 {
		return NewConfigError("Validate", fmt.Sprintf("partitions must be positive, got %d", c.Partitions))
	}
	if c.DeviceMemoryMB < 0 {
		return NewConfigError("Validate", fmt.Sprintf("device_memory_mb must be non-negative, got %d", c.DeviceMemoryMB))
	}
	switch c.Backend {
	case BackendCPU, BackendCPUParallel, BackendStream:
	default:
		return NewConfigError("Validate", fmt.Sprintf("unknown backend %q", c.Backend))
	}
	return nil
}

// Validate checks threshold values and enums.
func (t Thresholds) Validate() error {
	for _, v := range []struct {
		name string
		val  float32
	}{{"seed", t.Seed}, {"adjacent", t.Adjacent}, {"cluster", t.Cluster}} {
		f := float64(v.val)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return NewConfigError("Validate", fmt.Sprintf("%s threshold must be finite and non-negative, got %v", v.name, v.val))
		}
	}
	if t.Seed < t.Adjacent {
		return NewConfigError("Validate", fmt.Sprintf("seed threshold %v below adjacent threshold %v", t.Seed, t.Adjacent))
	}
	switch t.Charge {
	case ChargeRaw, ChargeGain:
	default:
		return NewConfigError("Validate", fmt.Sprintf("unknown charge mode %q", t.Charge))
	}
	switch t.BadChannels {
	case BadExclude, BadSeedOnly:
	default:
		return NewConfigError("Validate", fmt.Sprintf("unknown bad channel policy %q", t.BadChannels))
	}
	return nil
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
