// Package vpm selects the mesh resolution used for a force solve as a
// function of the scale factor.
package vpm

import (
	"fmt"

	"github.com/san-kum/pmgrav/internal/pm"
)

// Config activates a mesh refined by Factor relative to the particle grid
// from scale factor AStart onwards.
type Config struct {
	AStart float64 `yaml:"a_start" json:"a_start"`
	Factor int     `yaml:"factor" json:"factor"`
}

// DensityFactor compensates painting particles per cell on a mesh finer
// than the particle grid.
func (c Config) DensityFactor() float64 {
	f := float64(c.Factor)
	return f * f * f
}

func (c Config) String() string {
	return fmt.Sprintf("a>=%.4g x%d", c.AStart, c.Factor)
}

// Schedule is an immutable table of mesh configurations ordered by
// activation time.
type Schedule struct {
	entries []Config
}

func NewSchedule(entries []Config) (*Schedule, error) {
	if len(entries) == 0 {
		return nil, pm.Configf("variable mesh schedule is empty")
	}
	for i, e := range entries {
		if e.Factor < 1 {
			return nil, pm.Configf("mesh entry %d has refinement factor %d, need >= 1", i, e.Factor)
		}
		if i > 0 && !(e.AStart > entries[i-1].AStart) {
			return nil, pm.Configf("mesh entry %d starts at a=%g, not after entry %d at a=%g",
				i, e.AStart, i-1, entries[i-1].AStart)
		}
	}

	s := &Schedule{entries: make([]Config, len(entries))}
	copy(s.entries, entries)
	return s, nil
}

func (s *Schedule) Len() int { return len(s.entries) }

func (s *Schedule) Entry(i int) Config { return s.entries[i] }

// Entries returns a copy of the table.
func (s *Schedule) Entries() []Config {
	out := make([]Config, len(s.entries))
	copy(out, s.entries)
	return out
}

// Select returns the index and configuration of the last entry whose
// AStart does not exceed a. An entry starting exactly at a is selected.
func (s *Schedule) Select(a float64) (int, Config, error) {
	i := 0
	for ; i < len(s.entries); i++ {
		if s.entries[i].AStart > a {
			break
		}
	}
	if i == 0 {
		return -1, Config{}, fmt.Errorf("%w: a=%g precedes first activation a=%g",
			pm.ErrNoMeshConfigured, a, s.entries[0].AStart)
	}
	return i - 1, s.entries[i-1], nil
}
