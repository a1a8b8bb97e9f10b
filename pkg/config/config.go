// Package config provides configuration loading and management for voxelfunc.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"gopkg.in/yaml.v3"

	"voxelfunc/pkg/parallel"
	"voxelfunc/pkg/volume"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Parallel controls the fork-join scheduler
	Parallel struct {
		// Workers is the maximum number of goroutines per pass; 0 uses GOMAXPROCS
		Workers int `yaml:"workers"`

		// Grain is the partition size below which ranges are not split;
		// 0 derives it from the range length
		Grain int `yaml:"grain"`

		// Oversubscription is the number of tasks per worker for automatic grains
		Oversubscription int `yaml:"oversubscription"`
	} `yaml:"parallel"`

	// Trace parameters
	Trace struct {
		// Level is the trace level of the 'voxel' tracer: Debug, Info or Error
		Level string `yaml:"level"`
	} `yaml:"trace"`

	// Metrics parameters
	Metrics struct {
		// Enabled serves the Prometheus metrics endpoint
		Enabled bool `yaml:"enabled"`

		// Listen is the address of the metrics endpoint
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`

	// Bench parameters
	Bench struct {
		// Extents of the synthetic volume as x, y, z, t
		Extents [4]int `yaml:"extents"`

		// TimeSeries marks the t axis of the volume as time
		TimeSeries bool `yaml:"timeSeries"`

		// Passes is the number of timed repetitions per traversal
		Passes int `yaml:"passes"`

		// Noise is the standard deviation of the perturbation compared
		// against the phantom
		Noise float64 `yaml:"noise"`

		// Seed makes the perturbation reproducible
		Seed uint64 `yaml:"seed"`

		// SliceOutputDir receives a z slice sequence of the phantom if set
		SliceOutputDir string `yaml:"sliceOutputDir"`
	} `yaml:"bench"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Parallel.Workers = runtime.NumCPU()
	cfg.Parallel.Grain = 0
	cfg.Parallel.Oversubscription = parallel.DefaultOversubscription

	cfg.Trace.Level = "Info"

	cfg.Metrics.Enabled = false
	cfg.Metrics.Listen = ":9090"

	cfg.Bench.Extents = [4]int{128, 128, 64, 1}
	cfg.Bench.Passes = 5
	cfg.Bench.Noise = 0.05
	cfg.Bench.Seed = 1

	return cfg
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Parallel.Workers < 0 {
		return fmt.Errorf("parallel.workers must be non-negative, got %d", c.Parallel.Workers)
	}
	if c.Parallel.Grain < 0 {
		return fmt.Errorf("parallel.grain must be non-negative, got %d", c.Parallel.Grain)
	}
	if c.Parallel.Oversubscription < 1 {
		return fmt.Errorf("parallel.oversubscription must be positive, got %d", c.Parallel.Oversubscription)
	}
	switch c.Trace.Level {
	case "Debug", "Info", "Error":
	default:
		return fmt.Errorf("trace.level must be Debug, Info or Error, got %q", c.Trace.Level)
	}
	if err := c.Attributes().Validate(); err != nil {
		return fmt.Errorf("bench.extents: %w", err)
	}
	if c.Bench.Passes < 1 {
		return fmt.Errorf("bench.passes must be positive, got %d", c.Bench.Passes)
	}
	if c.Bench.Noise < 0 {
		return fmt.Errorf("bench.noise must be non-negative, got %g", c.Bench.Noise)
	}
	return nil
}

// Scheduler builds the scheduler described by the parallel section
func (c *Config) Scheduler() *parallel.Scheduler {
	return parallel.New(c.Parallel.Workers,
		parallel.WithGrain(c.Parallel.Grain),
		parallel.WithOversubscription(c.Parallel.Oversubscription),
	)
}

// ConfigureTracing routes all tracers to a Go standard logger on stderr at
// the configured level
func (c *Config) ConfigureTracing() {
	tracing.SetTraceSelector(tracing.SelectorForAdapter(gologadapter.GetAdapter()))
	tracing.Select("voxel").SetTraceLevel(tracing.TraceLevelFromString(c.Trace.Level))
}

// Attributes returns the extents of the benchmark volume
func (c *Config) Attributes() volume.Attributes {
	e := c.Bench.Extents
	if c.Bench.TimeSeries {
		return volume.NewTimeSeries(e[0], e[1], e[2], e[3], 1)
	}
	return volume.NewAttributes(e[0], e[1], e[2], e[3])
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
