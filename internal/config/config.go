package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pmgrav/internal/localmesh"
	"github.com/san-kum/pmgrav/internal/pm"
	"github.com/san-kum/pmgrav/internal/vpm"
)

const (
	DefaultNc       = 16
	DefaultBoxSize  = 100.0
	DefaultSeed     = 100
	DefaultJitter   = 0.2
	DefaultBasename = "powerspec_"
)

type Config struct {
	Nc            int          `yaml:"nc"`
	BoxSize       float64      `yaml:"box_size"`
	Seed          int64        `yaml:"seed"`
	Jitter        float64      `yaml:"jitter"`
	Threads       int          `yaml:"threads"`
	TimeSteps     []float64    `yaml:"time_steps"`
	Force         bool         `yaml:"force"`
	VariableMesh  []vpm.Config `yaml:"variable_mesh"`
	PowerSpectrum PowerConfig  `yaml:"power_spectrum"`
	Smoothing     float64      `yaml:"smoothing"`
	MaxScratchMB  int          `yaml:"max_scratch_mb"`
	Transform     string       `yaml:"transform"`
	Output        string       `yaml:"output"`
}

type PowerConfig struct {
	Basename string `yaml:"basename"`
	// Every measures the spectrum on every n-th time step; zero never.
	Every      int  `yaml:"every"`
	Deconvolve bool `yaml:"deconvolve"`
}

func DefaultConfig() *Config {
	return &Config{
		Nc:        DefaultNc,
		BoxSize:   DefaultBoxSize,
		Seed:      DefaultSeed,
		Jitter:    DefaultJitter,
		TimeSteps: []float64{0.1, 0.25, 0.5, 1.0},
		Force:     true,
		VariableMesh: []vpm.Config{
			{AStart: 0, Factor: 2},
		},
		PowerSpectrum: PowerConfig{
			Basename: DefaultBasename,
			Every:    1,
		},
		Transform: localmesh.DefaultBackend,
		Output:    "runs",
	}
}

// Load reads a YAML file, or an INI-style file when the extension is .ini
// or .cfg. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".cfg":
		return loadINI(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Nc < 1:
		return pm.Configf("nc must be positive, got %d", c.Nc)
	case !(c.BoxSize > 0):
		return pm.Configf("box_size must be positive, got %g", c.BoxSize)
	case c.Jitter < 0:
		return pm.Configf("jitter must not be negative, got %g", c.Jitter)
	case c.Threads < 0:
		return pm.Configf("threads must not be negative, got %d", c.Threads)
	case len(c.TimeSteps) == 0:
		return pm.Configf("time_steps is empty")
	case c.PowerSpectrum.Every < 0:
		return pm.Configf("power_spectrum.every must not be negative, got %d", c.PowerSpectrum.Every)
	case c.Smoothing < 0:
		return pm.Configf("smoothing must not be negative, got %g", c.Smoothing)
	case c.MaxScratchMB < 0:
		return pm.Configf("max_scratch_mb must not be negative, got %d", c.MaxScratchMB)
	}

	for i, a := range c.TimeSteps {
		if !(a > 0) {
			return pm.Configf("time_steps[%d] must be a positive scale factor, got %g", i, a)
		}
	}
	if !knownBackend(c.Transform) {
		return pm.Configf("transform %q is not one of %v", c.Transform, localmesh.Backends())
	}
	if _, err := c.Schedule(); err != nil {
		return fmt.Errorf("variable_mesh: %w", err)
	}
	return nil
}

func knownBackend(name string) bool {
	if name == "" {
		return true
	}
	for _, b := range localmesh.Backends() {
		if b == name {
			return true
		}
	}
	return false
}

func (c *Config) Schedule() (*vpm.Schedule, error) {
	return vpm.NewSchedule(c.VariableMesh)
}

// MeasurePower reports whether time step i records a spectrum.
func (c *Config) MeasurePower(i int) bool {
	every := c.PowerSpectrum.Every
	return every > 0 && i%every == 0
}

func (c *Config) MaxScratchBytes() int64 {
	return int64(c.MaxScratchMB) << 20
}
