// Package sim drives the force solver over a sequence of scale factors
// for one particle realization, or several realizations at once.
package sim

import (
	"github.com/san-kum/pmgrav/internal/particle"
	"github.com/san-kum/pmgrav/internal/power"
	"github.com/san-kum/pmgrav/internal/solver"
)

// Observer is notified after every solved time step. A returned error
// stops the survey.
type Observer interface {
	OnStep(step *StepResult, store *particle.Store) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(step *StepResult, store *particle.Store) error

func (f ObserverFunc) OnStep(step *StepResult, store *particle.Store) error { return f(step, store) }

type StepResult struct {
	Index int
	A     float64
	Seed  int64

	Solve *solver.Result
	Stats particle.Stats

	// Spectrum and Meta are set when power was measured on this step.
	Spectrum *power.Spectrum
	Meta     power.Meta
}

type Result struct {
	Seed  int64
	Steps []StepResult
}

// Spectra returns the steps that measured power, in order.
func (r *Result) Spectra() []StepResult {
	var out []StepResult
	for _, st := range r.Steps {
		if st.Spectrum != nil {
			out = append(out, st)
		}
	}
	return out
}
