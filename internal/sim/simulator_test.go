package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/particle"
	"github.com/san-kum/pmgrav/internal/pm"
	"github.com/san-kum/pmgrav/internal/storage"
	"github.com/san-kum/pmgrav/internal/vpm"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Nc = 8
	cfg.BoxSize = 8
	cfg.Jitter = 0.3
	cfg.Threads = 2
	cfg.TimeSteps = []float64{0.1, 0.5, 1.0}
	cfg.VariableMesh = []vpm.Config{{AStart: 0, Factor: 1}, {AStart: 0.5, Factor: 2}}
	cfg.PowerSpectrum.Every = 2
	return cfg
}

func TestSurveyRun(t *testing.T) {
	survey, err := NewSurvey(testConfig(), nil)
	if err != nil {
		t.Fatalf("new survey: %v", err)
	}

	var seen []float64
	survey.AddObserver(ObserverFunc(func(step *StepResult, store *particle.Store) error {
		seen = append(seen, step.A)
		if store.Len() != 512 {
			t.Errorf("expected 512 particles, got %d", store.Len())
		}
		return nil
	}))

	result, err := survey.Run(context.Background(), 7)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Steps) != 3 || len(seen) != 3 {
		t.Fatalf("expected 3 steps and 3 notifications, got %d and %d", len(result.Steps), len(seen))
	}
	wantMesh := []int{8, 16, 16}
	for i, st := range result.Steps {
		if st.Solve.Nmesh[0] != wantMesh[i] {
			t.Errorf("step %d: expected nmesh %d, got %d", i, wantMesh[i], st.Solve.Nmesh[0])
		}
		if !(st.Stats.RMS > 0) {
			t.Errorf("step %d: jittered lattice should feel a force, rms %g", i, st.Stats.RMS)
		}
		if st.Seed != 7 {
			t.Errorf("step %d: expected seed 7, got %d", i, st.Seed)
		}
	}

	spectra := result.Spectra()
	if len(spectra) != 2 || spectra[0].Index != 0 || spectra[1].Index != 2 {
		t.Fatalf("expected spectra on steps 0 and 2, got %d", len(spectra))
	}
	if spectra[1].Meta.N1 != 512 || spectra[1].Meta.ShotNoise != 1 {
		t.Errorf("unexpected spectrum metadata %+v", spectra[1].Meta)
	}
	if result.Steps[1].Spectrum != nil {
		t.Error("step 1 should not measure power")
	}
}

func TestSurveyForceOff(t *testing.T) {
	cfg := testConfig()
	cfg.Force = false
	cfg.PowerSpectrum.Every = 0

	survey, err := NewSurvey(cfg, nil)
	if err != nil {
		t.Fatalf("new survey: %v", err)
	}
	result, err := survey.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, st := range result.Steps {
		if !st.Solve.Skipped {
			t.Errorf("step %d: expected a skipped solve", i)
		}
	}
}

func TestSurveyStopsBeforeFirstMesh(t *testing.T) {
	cfg := testConfig()
	cfg.VariableMesh = []vpm.Config{{AStart: 0.3, Factor: 1}}

	survey, err := NewSurvey(cfg, nil)
	if err != nil {
		t.Fatalf("new survey: %v", err)
	}
	result, err := survey.Run(context.Background(), 1)
	if !errors.Is(err, pm.ErrNoMeshConfigured) {
		t.Fatalf("expected ErrNoMeshConfigured, got %v", err)
	}
	if len(result.Steps) != 0 {
		t.Errorf("expected no solved steps, got %d", len(result.Steps))
	}
}

func TestSurveyRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TimeSteps = nil
	if _, err := NewSurvey(cfg, nil); !errors.Is(err, pm.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestSurveyObserverErrorStops(t *testing.T) {
	survey, err := NewSurvey(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("disk full")
	survey.AddObserver(ObserverFunc(func(step *StepResult, _ *particle.Store) error {
		if step.Index == 1 {
			return boom
		}
		return nil
	}))

	result, err := survey.Run(context.Background(), 1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected observer error, got %v", err)
	}
	if len(result.Steps) != 1 {
		t.Errorf("expected one completed step, got %d", len(result.Steps))
	}
}

func TestSurveyContextCancellation(t *testing.T) {
	survey, err := NewSurvey(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := survey.Run(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEnsembleMatchesSingleRuns(t *testing.T) {
	cfg := testConfig()
	cfg.Seed = 40

	results, err := NewEnsemble(cfg, 3, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("ensemble: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Seed != 40+int64(i) {
			t.Errorf("result %d: expected seed %d, got %d", i, 40+i, res.Seed)
		}
	}

	survey, err := NewSurvey(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	single, err := survey.Run(context.Background(), 41)
	if err != nil {
		t.Fatal(err)
	}
	for i := range single.Steps {
		got, want := results[1].Steps[i].Stats.RMS, single.Steps[i].Stats.RMS
		if math.Abs(got-want) > 1e-12*want {
			t.Errorf("step %d: ensemble rms %g differs from single run %g", i, got, want)
		}
	}

	if results[0].Steps[0].Stats.RMS == results[1].Steps[0].Stats.RMS {
		t.Error("different seeds produced identical realizations")
	}
}

func TestEnsemblePropagatesError(t *testing.T) {
	cfg := testConfig()
	cfg.Nc = 0
	if _, err := NewEnsemble(cfg, 2, nil).Run(context.Background()); !errors.Is(err, pm.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestRecorder(t *testing.T) {
	cfg := testConfig()
	store := storage.New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder(store, cfg)

	ens := NewEnsemble(cfg, 2, nil)
	ens.AddObserver(rec)
	if _, err := ens.Run(context.Background()); err != nil {
		t.Fatalf("ensemble: %v", err)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || len(rec.Runs()) != 2 {
		t.Fatalf("expected 2 runs, got %d listed and %d recorded", len(runs), len(rec.Runs()))
	}

	for _, run := range runs {
		if len(run.Steps) != 3 {
			t.Fatalf("run %s: expected 3 steps, got %d", run.ID, len(run.Steps))
		}
		if run.Steps[0].Spectrum == "" || run.Steps[1].Spectrum != "" || run.Steps[2].Spectrum == "" {
			t.Errorf("run %s: unexpected spectrum files %+v", run.ID, run.Steps)
		}
		if run.Steps[2].Nmesh != 16 || run.Steps[2].Factor != 2 {
			t.Errorf("run %s: unexpected mesh record %+v", run.ID, run.Steps[2])
		}

		ps, meta, err := store.LoadSpectrum(run.ID, 2)
		if err != nil {
			t.Fatalf("load spectrum: %v", err)
		}
		if ps.Size() != 8 || meta.N1 != 512 {
			t.Errorf("run %s: unexpected spectrum size %d or N1 %g", run.ID, ps.Size(), meta.N1)
		}
	}
}

func TestCheckSlabs(t *testing.T) {
	cfg := testConfig()

	for _, ranks := range []int{1, 3, 40} {
		checks, err := CheckSlabs(cfg, ranks)
		if err != nil {
			t.Fatalf("%d ranks: %v", ranks, err)
		}
		if len(checks) != 2 {
			t.Fatalf("%d ranks: expected one check per entry, got %d", ranks, len(checks))
		}
		for _, c := range checks {
			if !c.Agrees || c.MaxRelDiff > 1e-9 {
				t.Errorf("%d ranks, entry %d: slab spectrum disagrees by %g", ranks, c.Entry, c.MaxRelDiff)
			}
			if c.Modes == 0 || c.Ranks != ranks {
				t.Errorf("%d ranks, entry %d: unexpected check %+v", ranks, c.Entry, c)
			}
		}
		if checks[1].Nmesh != 16 {
			t.Errorf("expected second entry on nmesh 16, got %d", checks[1].Nmesh)
		}
	}
}

func TestCheckSlabsRejectsZeroRanks(t *testing.T) {
	if _, err := CheckSlabs(testConfig(), 0); !errors.Is(err, pm.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
