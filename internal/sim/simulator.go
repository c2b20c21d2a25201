package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/localmesh"
	"github.com/san-kum/pmgrav/internal/particle"
	"github.com/san-kum/pmgrav/internal/solver"
	"github.com/san-kum/pmgrav/internal/vpm"
)

// Survey evaluates forces on a fixed particle realization at each
// configured scale factor. It owns its meshes and is not safe for
// concurrent use.
type Survey struct {
	cfg       *config.Config
	set       *vpm.MeshSet
	solver    *solver.Solver
	log       *slog.Logger
	observers []Observer
}

func NewSurvey(cfg *config.Config, logger *slog.Logger) (*Survey, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	schedule, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}
	plan := localmesh.Planner(cfg.BoxSize, localmesh.Options{Backend: cfg.Transform, Threads: cfg.Threads})
	set, err := vpm.NewMeshSet(schedule, cfg.Nc, plan, logger)
	if err != nil {
		return nil, err
	}

	slv, err := solver.New(set, particle.NoGhosts{}, solver.Options{
		Threads:    cfg.Threads,
		Logger:     logger,
		MaxScratch: cfg.MaxScratchBytes(),
		Deconvolve: cfg.PowerSpectrum.Deconvolve,
		Smoothing:  cfg.Smoothing,
	})
	if err != nil {
		return nil, err
	}

	return &Survey{cfg: cfg, set: set, solver: slv, log: logger}, nil
}

func (s *Survey) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Survey) Schedule() *vpm.Schedule { return s.set.Schedule() }

// Run builds the lattice for seed and solves every time step on it.
func (s *Survey) Run(ctx context.Context, seed int64) (*Result, error) {
	store, err := particle.Lattice(s.cfg.Nc, s.cfg.BoxSize, s.cfg.Jitter, seed)
	if err != nil {
		return nil, err
	}
	return s.RunOn(ctx, store, seed)
}

// RunOn solves every time step on an existing store. Steps solved before
// a failure are returned with the error.
func (s *Survey) RunOn(ctx context.Context, store *particle.Store, seed int64) (*Result, error) {
	result := &Result{Seed: seed, Steps: make([]StepResult, 0, len(s.cfg.TimeSteps))}
	ntotal := float64(store.Len())

	for i, a := range s.cfg.TimeSteps {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		step := solver.Step{Force: s.cfg.Force, Power: s.cfg.MeasurePower(i)}
		res, err := s.solver.Solve(ctx, store, a, step)
		if err != nil {
			return result, fmt.Errorf("step %d (a=%g): %w", i, a, err)
		}

		sr := StepResult{Index: i, A: a, Seed: seed, Solve: res}
		if step.Force {
			sr.Stats = store.AccelerationStats()
		}
		if res.Spectrum != nil {
			sr.Spectrum = res.Spectrum
			sr.Meta = res.Spectrum.Metadata(ntotal)
		}

		s.log.Debug("step solved", "seed", seed, "a", a, "nmesh", res.Nmesh[0], "acc_rms", sr.Stats.RMS, "elapsed", res.Timings.Total())

		for _, obs := range s.observers {
			if err := obs.OnStep(&sr, store); err != nil {
				return result, fmt.Errorf("step %d observer: %w", i, err)
			}
		}
		result.Steps = append(result.Steps, sr)
	}

	return result, nil
}
