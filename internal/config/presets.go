package config

import (
	"sort"

	"github.com/san-kum/pmgrav/internal/vpm"
)

// Presets are named variable-mesh schedules.
var Presets = map[string][]vpm.Config{
	"fixed": {
		{AStart: 0, Factor: 2},
	},
	"coarse-to-fine": {
		{AStart: 0, Factor: 1},
		{AStart: 0.25, Factor: 2},
		{AStart: 0.5, Factor: 3},
	},
	"fine-to-coarse": {
		{AStart: 0, Factor: 3},
		{AStart: 0.25, Factor: 2},
		{AStart: 0.5, Factor: 1},
	},
}

// GetPreset returns the default configuration running the named schedule,
// or nil.
func GetPreset(name string) *Config {
	schedule, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.VariableMesh = append([]vpm.Config(nil), schedule...)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
