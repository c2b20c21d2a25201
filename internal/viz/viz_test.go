package viz

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/pmgrav/internal/power"
	"github.com/san-kum/pmgrav/internal/vpm"
)

func TestPlotSpectrum(t *testing.T) {
	ps := power.New(4)
	copy(ps.K, []float64{math.NaN(), 0.2, 0.3, 0.4})
	copy(ps.P, []float64{math.NaN(), 100, 10, 1})

	out, err := PlotSpectrum(ps, "", 40, 5)
	if err != nil {
		t.Fatalf("plot: %v", err)
	}
	if !strings.Contains(out, "log10 P(k), k in [0.2, 0.4]") {
		t.Errorf("caption missing from plot:\n%s", out)
	}
}

func TestPlotSpectrumWithoutData(t *testing.T) {
	ps := power.New(2)
	copy(ps.P, []float64{math.NaN(), 0})
	if _, err := PlotSpectrum(ps, "empty", 40, 5); err == nil {
		t.Error("expected error for a spectrum without positive bins")
	}
}

func TestScheduleTable(t *testing.T) {
	s, err := vpm.NewSchedule([]vpm.Config{{AStart: 0.1, Factor: 1}, {AStart: 0.5, Factor: 2}})
	if err != nil {
		t.Fatal(err)
	}
	out := ScheduleTable(s, 16, []float64{0.05, 0.2, 0.7})

	for _, want := range []string{"no mesh configured", "16", "32"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in table:\n%s", want, out)
		}
	}
}

func TestSparkline(t *testing.T) {
	if Sparkline(nil) != "" {
		t.Error("expected empty sparkline")
	}
	out := Sparkline([]float64{1, 2, 3})
	if !strings.Contains(out, "▁") || !strings.Contains(out, "█") {
		t.Errorf("expected lowest and highest glyphs, got %q", out)
	}
}

func TestStepsTable(t *testing.T) {
	out := StepsTable([]Step{{A: 0.5, Nmesh: 32, AccRMS: 0.01, Power: true}, {A: 1, Nmesh: 64, AccRMS: 0.02}})
	if !strings.Contains(out, "acc rms") || !strings.Contains(out, "64") {
		t.Errorf("unexpected table:\n%s", out)
	}
}
