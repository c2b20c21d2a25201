package spectral

import (
	"math"

	"github.com/san-kum/pmgrav/internal/grid"
)

// Factor holds the precomputed per-axis scalars for one grid index.
type Factor struct {
	KFinite  float64 // finite-difference i k
	KKFinite float64 // k^2 as seen by the mesh
	KK       float64 // k^2
	CIC      float64 // 1 - 2/3 sin^2(k h / 2)
}

// Factors is one table per axis, indexed by global grid index.
type Factors [3][]Factor

// DiffKernel is the fourth-order finite-difference approximation of the
// derivative in Fourier space, in units of the cell size.
func DiffKernel(w float64) float64 {
	return (8*math.Sin(w) - math.Sin(2*w)) / 6
}

// Sinc is the unnormalized sinc, sin(x)/x, switching to its Taylor
// expansion near zero.
func Sinc(x float64) float64 {
	if x < 1e-5 && x > -1e-5 {
		x2 := x * x
		return 1 - x2/6 + x2*x2/120
	}
	return math.Sin(x) / x
}

func BuildFactors(g *grid.Geometry, cellSize [3]float64) Factors {
	var fac Factors
	for d := 0; d < 3; d++ {
		h := cellSize[d]
		fac[d] = make([]Factor, g.Nmesh[d])
		for i := range fac[d] {
			k := g.K[d][i]
			w := k * h
			ff := Sinc(0.5 * w)
			s := math.Sin(0.5 * w)

			fac[d][i] = Factor{
				KFinite:  DiffKernel(w) / h,
				KKFinite: k * k * ff * ff,
				KK:       k * k,
				CIC:      1 - 2.0/3*s*s,
			}
		}
	}
	return fac
}

// NewFactors builds the table for the cell size of g.
func NewFactors(g *grid.Geometry) Factors {
	return BuildFactors(g, g.CellSize())
}

// Deconvolution is the product of the per-axis CIC factors at a mode.
func (f Factors) Deconvolution(k [3]int) float64 {
	return f[0][k[0]].CIC * f[1][k[1]].CIC * f[2][k[2]].CIC
}

// KK is the raw squared wavenumber of a mode.
func (f Factors) KK(k [3]int) float64 {
	return f[0][k[0]].KK + f[1][k[1]].KK + f[2][k[2]].KK
}

// KKFinite is the mesh-corrected squared wavenumber of a mode.
func (f Factors) KKFinite(k [3]int) float64 {
	return f[0][k[0]].KKFinite + f[1][k[1]].KKFinite + f[2][k[2]].KKFinite
}
