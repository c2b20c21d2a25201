package sim

import (
	"math"

	"github.com/san-kum/pmgrav/internal/comm"
	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/localmesh"
	"github.com/san-kum/pmgrav/internal/particle"
	"github.com/san-kum/pmgrav/internal/power"
	"github.com/san-kum/pmgrav/internal/spectral"
)

// SlabCheck compares, for one schedule entry, the spectrum of the seed
// lattice measured on one rank with the same spectrum split over slabs.
type SlabCheck struct {
	Entry  int
	Nmesh  int
	Ranks  int
	Modes  float64
	Agrees bool
	// MaxRelDiff is the largest relative power difference over non-empty
	// bins.
	MaxRelDiff float64
}

// CheckSlabs paints the lattice for cfg.Seed on the mesh of every schedule
// entry and measures its spectrum both ways. Mode counts must match
// exactly and power to rounding.
func CheckSlabs(cfg *config.Config, ranks int) ([]SlabCheck, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	schedule, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}
	store, err := particle.Lattice(cfg.Nc, cfg.BoxSize, cfg.Jitter, cfg.Seed)
	if err != nil {
		return nil, err
	}

	checks := make([]SlabCheck, 0, schedule.Len())
	for i, e := range schedule.Entries() {
		mesh, err := localmesh.New(cfg.Nc*e.Factor, cfg.BoxSize, localmesh.Options{Backend: cfg.Transform, Threads: cfg.Threads})
		if err != nil {
			return nil, err
		}
		g := mesh.Geometry()
		rfield := make([]float64, mesh.RealLen())
		cfield := make([]float64, g.FieldLen())
		if err := mesh.Paint(rfield, store, store.Len()); err != nil {
			return nil, err
		}
		if err := mesh.Forward(rfield, cfield); err != nil {
			return nil, err
		}

		fac := spectral.NewFactors(g)
		opts := power.Options{
			DensityFactor: e.DensityFactor(),
			Deconvolve:    cfg.PowerSpectrum.Deconvolve,
			Threads:       cfg.Threads,
		}
		single := power.ForGeometry(g)
		if err := power.Estimate(single, cfield, g, fac, comm.Self(), opts); err != nil {
			return nil, err
		}
		split, err := power.EstimateSlabs(cfield, g, fac, ranks, opts)
		if err != nil {
			return nil, err
		}

		c := SlabCheck{Entry: i, Nmesh: g.Nmesh[0], Ranks: ranks, Modes: split.TotalModes(), Agrees: true}
		for b := range single.P {
			if split.N[b] != single.N[b] {
				c.Agrees = false
			}
			if single.N[b] == 0 {
				continue
			}
			diff := math.Abs(split.P[b] - single.P[b])
			if ref := math.Abs(single.P[b]); ref > 0 {
				diff /= ref
			}
			c.MaxRelDiff = math.Max(c.MaxRelDiff, diff)
		}
		if c.MaxRelDiff > 1e-9 {
			c.Agrees = false
		}
		checks = append(checks, c)
	}
	return checks, nil
}
