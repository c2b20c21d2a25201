package sim

import (
	"context"
	"log/slog"
	"sync"

	"github.com/san-kum/pmgrav/internal/config"
)

// Ensemble runs one survey per seed concurrently. Each realization gets
// its own meshes and solver.
type Ensemble struct {
	cfg       *config.Config
	numRuns   int
	log       *slog.Logger
	observers []Observer
}

func NewEnsemble(cfg *config.Config, numRuns int, logger *slog.Logger) *Ensemble {
	if numRuns < 1 {
		numRuns = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ensemble{cfg: cfg, numRuns: numRuns, log: logger}
}

// AddObserver registers o with every realization. Observers must be safe
// for concurrent use when more than one run is requested.
func (e *Ensemble) AddObserver(o Observer) { e.observers = append(e.observers, o) }

// Run uses seeds cfg.Seed, cfg.Seed+1, and so on. Results are in seed
// order; the first error in seed order is returned.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			seed := e.cfg.Seed + int64(idx)
			survey, err := NewSurvey(e.cfg, e.log.With("seed", seed))
			if err != nil {
				errs[idx] = err
				return
			}
			for _, o := range e.observers {
				survey.AddObserver(o)
			}
			results[idx], errs[idx] = survey.Run(ctx, seed)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
