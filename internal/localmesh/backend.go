package localmesh

import (
	"fmt"
	"math/cmplx"
	"sort"

	dspfft "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// lineTransform runs one-dimensional transforms of a fixed length. None of
// the transforms normalize. A lineTransform is used by one goroutine at a
// time.
type lineTransform interface {
	RealForward(dst []complex128, src []float64)
	RealInverse(dst []float64, src []complex128)
	Forward(dst, src []complex128)
	Inverse(dst, src []complex128)
}

type planner func(n int) lineTransform

var backends = map[string]planner{
	"gonum": newGonumLine,
	"dsp":   newDSPLine,
}

// DefaultBackend is used when no backend is named.
const DefaultBackend = "gonum"

// Backends lists the registered transform backends.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupBackend(name string) (planner, error) {
	if name == "" {
		name = DefaultBackend
	}
	p, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("localmesh: unknown transform backend %q (available: %v)", name, Backends())
	}
	return p, nil
}

type gonumLine struct {
	r *fourier.FFT
	c *fourier.CmplxFFT
}

func newGonumLine(n int) lineTransform {
	return &gonumLine{r: fourier.NewFFT(n), c: fourier.NewCmplxFFT(n)}
}

func (l *gonumLine) RealForward(dst []complex128, src []float64) { l.r.Coefficients(dst, src) }
func (l *gonumLine) RealInverse(dst []float64, src []complex128) { l.r.Sequence(dst, src) }
func (l *gonumLine) Forward(dst, src []complex128)               { l.c.Coefficients(dst, src) }
func (l *gonumLine) Inverse(dst, src []complex128)               { l.c.Sequence(dst, src) }

// dspLine wraps go-dsp, whose inverse divides by n; the factor is undone
// here so both backends share one convention.
type dspLine struct {
	n    int
	full []complex128
}

func newDSPLine(n int) lineTransform {
	return &dspLine{n: n, full: make([]complex128, n)}
}

func (l *dspLine) RealForward(dst []complex128, src []float64) {
	copy(dst, dspfft.FFTReal(src))
}

func (l *dspLine) RealInverse(dst []float64, src []complex128) {
	copy(l.full, src)
	for k := len(src); k < l.n; k++ {
		l.full[k] = cmplx.Conj(l.full[l.n-k])
	}
	out := dspfft.IFFT(l.full)
	scale := float64(l.n)
	for i := range dst {
		dst[i] = real(out[i]) * scale
	}
}

func (l *dspLine) Forward(dst, src []complex128) {
	copy(dst, dspfft.FFT(src))
}

func (l *dspLine) Inverse(dst, src []complex128) {
	out := dspfft.IFFT(src)
	scale := complex(float64(l.n), 0)
	for i := range dst {
		dst[i] = out[i] * scale
	}
}
