package sim

import (
	"sync"

	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/particle"
	"github.com/san-kum/pmgrav/internal/storage"
)

// Recorder persists every step through a storage.Store: spectra go to
// files named after the configured basename and each seed gets one run
// directory with its metadata. It is safe for concurrent use.
type Recorder struct {
	store *storage.Store
	cfg   *config.Config

	mu   sync.Mutex
	runs map[int64]*storage.RunMetadata
}

func NewRecorder(store *storage.Store, cfg *config.Config) *Recorder {
	return &Recorder{store: store, cfg: cfg, runs: make(map[int64]*storage.RunMetadata)}
}

func (r *Recorder) OnStep(step *StepResult, _ *particle.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, err := r.run(step.Seed)
	if err != nil {
		return err
	}

	rec := storage.StepRecord{
		A:       step.A,
		Nmesh:   step.Solve.Nmesh[0],
		Factor:  step.Solve.Config.Factor,
		AccRMS:  step.Stats.RMS,
		AccMax:  step.Stats.Max,
		Seconds: step.Solve.Timings.Total().Seconds(),
	}
	if step.Spectrum != nil {
		name, err := r.store.SaveSpectrum(meta.ID, r.cfg.PowerSpectrum.Basename, step.Seed, step.A, step.Spectrum, step.Meta)
		if err != nil {
			return err
		}
		rec.Spectrum = name
	}
	meta.Steps = append(meta.Steps, rec)
	return r.store.SaveMetadata(meta)
}

// Runs returns the metadata recorded so far, one entry per seed.
func (r *Recorder) Runs() []*storage.RunMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*storage.RunMetadata, 0, len(r.runs))
	for _, m := range r.runs {
		out = append(out, m)
	}
	return out
}

func (r *Recorder) run(seed int64) (*storage.RunMetadata, error) {
	if meta, ok := r.runs[seed]; ok {
		return meta, nil
	}
	meta := &storage.RunMetadata{
		Seed:      seed,
		Nc:        r.cfg.Nc,
		BoxSize:   r.cfg.BoxSize,
		Transform: r.cfg.Transform,
		Schedule:  r.cfg.VariableMesh,
	}
	if err := r.store.Create(meta); err != nil {
		return nil, err
	}
	r.runs[seed] = meta
	return meta, nil
}
