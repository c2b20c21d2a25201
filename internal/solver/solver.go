// Package solver evaluates particle accelerations, and optionally the
// density power spectrum, with a spectral particle-mesh method on the mesh
// that a variable-mesh schedule selects for the current scale factor.
package solver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/pmgrav/internal/grid"
	"github.com/san-kum/pmgrav/internal/pm"
	"github.com/san-kum/pmgrav/internal/power"
	"github.com/san-kum/pmgrav/internal/spectral"
	"github.com/san-kum/pmgrav/internal/vpm"
)

// Particles below this count per worker are read out inline.
const minReadout = 256

type Options struct {
	Threads int
	Logger  *slog.Logger

	// MaxScratch caps the scratch bytes of a solve; zero is unlimited.
	MaxScratch int64
	// Deconvolve divides measured power by the CIC window.
	Deconvolve bool
	// Smoothing is the Gaussian scale applied to the density before the
	// force transfer. Zero leaves the density as painted.
	Smoothing float64
}

// Step selects the work of one solve.
type Step struct {
	Force bool
	Power bool
}

// Result describes one solve. Spectrum is nil unless power was measured.
type Result struct {
	Skipped  bool
	Config   vpm.Config
	Nmesh    [3]int
	Ghosts   int
	Spectrum *power.Spectrum
	Timings  Timings
}

type Solver struct {
	set    *vpm.MeshSet
	ghosts pm.GhostExchanger
	opts   Options
	log    *slog.Logger
	arena  *Arena

	mu      sync.Mutex
	factors map[*grid.Geometry]spectral.Factors
}

func New(set *vpm.MeshSet, ghosts pm.GhostExchanger, opts Options) (*Solver, error) {
	if set == nil {
		return nil, pm.Configf("solver needs a mesh set")
	}
	if ghosts == nil {
		return nil, pm.Configf("solver needs a ghost exchanger")
	}
	if opts.MaxScratch < 0 {
		return nil, pm.Configf("scratch limit must not be negative, got %d", opts.MaxScratch)
	}
	if opts.Smoothing < 0 {
		return nil, pm.Configf("smoothing scale must not be negative, got %g", opts.Smoothing)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Solver{
		set:     set,
		ghosts:  ghosts,
		opts:    opts,
		log:     log,
		arena:   NewArena(opts.MaxScratch),
		factors: make(map[*grid.Geometry]spectral.Factors),
	}, nil
}

// Arena exposes the scratch arena, mainly to report its usage.
func (s *Solver) Arena() *Arena { return s.arena }

// factorsFor returns the factor table of a mesh, built once per geometry.
// Kernels only read it.
func (s *Solver) factorsFor(mesh pm.Mesh) spectral.Factors {
	g := mesh.Geometry()
	s.mu.Lock()
	defer s.mu.Unlock()
	fac, ok := s.factors[g]
	if !ok {
		fac = spectral.NewFactors(g)
		s.factors[g] = fac
	}
	return fac
}

// Solve runs one force evaluation at scale factor a. Accelerations are
// written through store for owned particles and ghosts; ghost
// contributions are reduced onto their owners. Every rank sharing the
// selected mesh must call Solve with the same a and step.
func (s *Solver) Solve(ctx context.Context, store pm.ParticleStore, a float64, step Step) (*Result, error) {
	if !step.Force && !step.Power {
		return &Result{Skipped: true}, nil
	}

	cfg, mesh, err := s.set.Find(a)
	if err != nil {
		return nil, err
	}
	g := mesh.Geometry()
	df := cfg.DensityFactor()
	s.log.Debug("using pm", "a", a, "nmesh", g.Nmesh[0], "factor", cfg.Factor)

	res := &Result{Config: cfg, Nmesh: g.Nmesh}
	clock := newStopwatch(&res.Timings)

	sc, err := s.arena.checkout(mesh)
	if err != nil {
		return nil, err
	}
	defer s.arena.release(sc)

	clock.start()
	gh, err := s.ghosts.Append(store, mesh, pm.AttrPosition)
	clock.stop(StageGhosts)
	if err != nil {
		return nil, pm.Collaborator("ghosts", err)
	}
	defer gh.Release()

	n := store.Len() + gh.Count()
	res.Ghosts = gh.Count()

	// Paint stores particles per cell; densityFactor restores particles
	// per particle-grid cell at readout and in the spectrum.
	clock.start()
	err = mesh.Paint(sc.real, store, n)
	clock.stop(StagePaint)
	if err != nil {
		return nil, pm.Collaborator("paint", err)
	}

	clock.start()
	err = mesh.Forward(sc.real, sc.canvas)
	clock.stop(StageFFT)
	if err != nil {
		return nil, pm.Collaborator("forward", err)
	}

	fac := s.factorsFor(mesh)

	if step.Power {
		ps := power.ForGeometry(g)
		clock.start()
		err = power.Estimate(ps, sc.canvas, g, fac, mesh.Comm(), power.Options{
			DensityFactor: df,
			Deconvolve:    s.opts.Deconvolve,
			Threads:       s.opts.Threads,
		})
		clock.stop(StagePower)
		if err != nil {
			return nil, err
		}
		res.Spectrum = ps
	}

	if !step.Force {
		s.log.Debug("force solve done", "a", a, "power", true, "force", false)
		return res, nil
	}

	if s.opts.Smoothing > 0 {
		if err := spectral.Smooth(sc.workspace, sc.canvas, g, fac, s.opts.Smoothing, s.opts.Threads); err != nil {
			return nil, err
		}
		sc.canvas, sc.workspace = sc.workspace, sc.canvas
	}

	scale := df / g.Norm
	for axis := 0; axis < 3; axis++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		clock.start()
		err = spectral.ForceComponent(sc.workspace, sc.canvas, g, fac, axis, s.opts.Threads)
		clock.stop(StageTransfer)
		if err != nil {
			return nil, err
		}

		clock.start()
		err = mesh.Inverse(sc.workspace, sc.real)
		clock.stop(StageFFT)
		if err != nil {
			return nil, pm.Collaborator("inverse", err)
		}

		clock.start()
		s.readout(mesh, sc.real, store, n, axis, scale)
		clock.stop(StageReadout)

		clock.start()
		err = gh.Reduce(pm.AccelerationAttr(axis))
		clock.stop(StageReduce)
		if err != nil {
			return nil, pm.Collaborator("reduce", err)
		}
	}

	s.log.Debug("force solve done", "a", a, "particles", store.Len(), "ghosts", res.Ghosts, "elapsed", res.Timings.Total())
	return res, nil
}

func (s *Solver) readout(mesh pm.Mesh, field []float64, store pm.ParticleStore, n, axis int, scale float64) {
	grid.ParallelFor(n, s.opts.Threads, minReadout, func(start, end int) {
		for i := start; i < end; i++ {
			store.SetAcceleration(i, axis, mesh.Readout(field, store.Position(i))*scale)
		}
	})
}

// Stage names a timed part of the pipeline.
type Stage int

const (
	StageGhosts Stage = iota
	StagePaint
	StageFFT
	StagePower
	StageTransfer
	StageReadout
	StageReduce
	numStages
)

var stageNames = [numStages]string{"ghosts", "paint", "fft", "power", "transfer", "readout", "reduce"}

func (s Stage) String() string {
	if s < 0 || s >= numStages {
		return "unknown"
	}
	return stageNames[s]
}

// Timings accumulates wall time per stage.
type Timings [numStages]time.Duration

func (t *Timings) Total() time.Duration {
	var sum time.Duration
	for _, d := range t {
		sum += d
	}
	return sum
}

type stopwatch struct {
	t     *Timings
	begin time.Time
}

func newStopwatch(t *Timings) *stopwatch { return &stopwatch{t: t} }

func (w *stopwatch) start()           { w.begin = time.Now() }
func (w *stopwatch) stop(stage Stage) { w.t[stage] += time.Since(w.begin) }
