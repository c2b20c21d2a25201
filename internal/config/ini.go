package config

import (
	"fmt"
	"sort"

	"gopkg.in/gcfg.v1"

	"github.com/san-kum/pmgrav/internal/vpm"
)

// iniFile mirrors Config for gcfg. Mesh subsections are named freely and
// ordered by their activation time:
//
//	[pm]
//	nc = 16
//	time-step = 0.5
//	time-step = 1.0
//
//	[mesh "early"]
//	a-start = 0
//	factor = 1
type iniFile struct {
	PM            iniPM
	PowerSpectrum iniPower `gcfg:"power-spectrum"`
	Mesh          map[string]*iniMesh
}

type iniPM struct {
	Nc           int       `gcfg:"nc"`
	BoxSize      float64   `gcfg:"box-size"`
	Seed         int64     `gcfg:"seed"`
	Jitter       float64   `gcfg:"jitter"`
	Threads      int       `gcfg:"threads"`
	TimeStep     []float64 `gcfg:"time-step"`
	Force        bool      `gcfg:"force"`
	Smoothing    float64   `gcfg:"smoothing"`
	MaxScratchMB int       `gcfg:"max-scratch-mb"`
	Transform    string    `gcfg:"transform"`
	Output       string    `gcfg:"output"`
}

type iniPower struct {
	Basename   string `gcfg:"basename"`
	Every      int    `gcfg:"every"`
	Deconvolve bool   `gcfg:"deconvolve"`
}

type iniMesh struct {
	AStart float64 `gcfg:"a-start"`
	Factor int     `gcfg:"factor"`
}

func loadINI(path string) (*Config, error) {
	def := DefaultConfig()

	f := iniFile{}
	f.PM.Nc = def.Nc
	f.PM.BoxSize = def.BoxSize
	f.PM.Seed = def.Seed
	f.PM.Jitter = def.Jitter
	f.PM.Force = def.Force
	f.PM.Transform = def.Transform
	f.PM.Output = def.Output
	f.PowerSpectrum.Basename = def.PowerSpectrum.Basename
	f.PowerSpectrum.Every = def.PowerSpectrum.Every

	if err := gcfg.ReadFileInto(&f, path); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := &Config{
		Nc:           f.PM.Nc,
		BoxSize:      f.PM.BoxSize,
		Seed:         f.PM.Seed,
		Jitter:       f.PM.Jitter,
		Threads:      f.PM.Threads,
		TimeSteps:    def.TimeSteps,
		Force:        f.PM.Force,
		VariableMesh: def.VariableMesh,
		PowerSpectrum: PowerConfig{
			Basename:   f.PowerSpectrum.Basename,
			Every:      f.PowerSpectrum.Every,
			Deconvolve: f.PowerSpectrum.Deconvolve,
		},
		Smoothing:    f.PM.Smoothing,
		MaxScratchMB: f.PM.MaxScratchMB,
		Transform:    f.PM.Transform,
		Output:       f.PM.Output,
	}
	if len(f.PM.TimeStep) > 0 {
		cfg.TimeSteps = f.PM.TimeStep
	}

	if len(f.Mesh) > 0 {
		cfg.VariableMesh = make([]vpm.Config, 0, len(f.Mesh))
		for name, m := range f.Mesh {
			if m == nil {
				return nil, fmt.Errorf("config: mesh %q is empty", name)
			}
			cfg.VariableMesh = append(cfg.VariableMesh, vpm.Config{AStart: m.AStart, Factor: m.Factor})
		}
		sort.Slice(cfg.VariableMesh, func(i, j int) bool {
			return cfg.VariableMesh[i].AStart < cfg.VariableMesh[j].AStart
		})
	}
	return cfg, nil
}
