// Package power measures the shell-averaged power spectrum of a density
// field in Fourier space.
package power

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/pmgrav/internal/grid"
	"github.com/san-kum/pmgrav/internal/pm"
	"github.com/san-kum/pmgrav/internal/spectral"
)

// Spectrum holds one power spectrum binned in |k|. After normalization K
// and P are NaN in bins where N is zero.
type Spectrum struct {
	K []float64
	P []float64
	N []float64

	Volume  float64
	BoxSize [3]float64
}

func New(size int) *Spectrum {
	if size < 0 {
		size = 0
	}
	return &Spectrum{
		K: make([]float64, size),
		P: make([]float64, size),
		N: make([]float64, size),
	}
}

// ForGeometry allocates a spectrum with Nmesh[0]/2 bins.
func ForGeometry(g *grid.Geometry) *Spectrum {
	ps := New(g.Nmesh[0] / 2)
	ps.Volume = g.Volume
	ps.BoxSize = g.BoxSize
	return ps
}

func (s *Spectrum) Size() int { return len(s.K) }

func (s *Spectrum) Reset() {
	for i := range s.K {
		s.K[i], s.P[i], s.N[i] = 0, 0, 0
	}
}

// TotalModes is the number of modes that landed in any bin.
func (s *Spectrum) TotalModes() float64 {
	return floats.Sum(s.N)
}

type Options struct {
	// DensityFactor rescales particles per cell to density; zero means 1.
	DensityFactor float64
	// Deconvolve divides every mode by its CIC factor product.
	Deconvolve bool
	Threads    int
}

type partial struct {
	k, p, n []float64
}

// Estimate fills ps from the complex field on this rank and reduces it over
// c. Every rank sharing the mesh must call Estimate.
func Estimate(ps *Spectrum, field []float64, g *grid.Geometry, fac spectral.Factors, c pm.Communicator, opts Options) error {
	if len(field) != g.FieldLen() {
		return fmt.Errorf("%w: spectrum field has %d values, region needs %d", pm.ErrFieldLength, len(field), g.FieldLen())
	}

	ps.Reset()
	ps.Volume = g.Volume
	ps.BoxSize = g.BoxSize

	size := ps.Size()
	k0 := g.FundamentalK()
	threads := grid.Threads(opts.Threads)

	parts := make([]partial, threads)
	grid.ForEachChunk(&g.Complex, threads, func(worker int, cur *grid.Cursor) {
		part := partial{
			k: make([]float64, size),
			p: make([]float64, size),
			n: make([]float64, size),
		}

		for cur.Next() {
			idx := cur.Global()
			ind := 2 * cur.Offset()

			re, im := field[ind], field[ind+1]
			value := re*re + im*im
			if opts.Deconvolve {
				value /= fac.Deconvolution(idx)
			}

			k := math.Sqrt(fac.KK(idx))
			bin := int(math.Floor(k / k0))
			if bin < 0 || bin >= size {
				continue
			}

			// A mode off the kz = 0 plane stands for itself and its
			// Hermitian partner.
			w := 2.0
			if idx[2] == 0 {
				w = 1
			}
			part.n[bin] += w
			part.p[bin] += w * value
			part.k[bin] += w * k
		}
		parts[worker] = part
	})

	for _, part := range parts {
		if part.n == nil {
			continue
		}
		floats.Add(ps.K, part.k)
		floats.Add(ps.P, part.p)
		floats.Add(ps.N, part.n)
	}

	if err := c.AllReduceSum(ps.P, ps.N, ps.K); err != nil {
		return pm.Collaborator("power", err)
	}

	df := opts.DensityFactor
	if df == 0 {
		df = 1
	}
	ps.Normalize(g.Volume, g.Norm, df)
	return nil
}

// Normalize turns reduced sums into bin averages scaled to a power
// spectrum with units of volume.
func (s *Spectrum) Normalize(volume, norm, densityFactor float64) {
	scale := volume / (norm * norm) * (densityFactor * densityFactor)
	for i := range s.K {
		s.K[i] /= s.N[i]
		s.P[i] /= s.N[i]
		s.P[i] *= scale
	}
}

// Meta is the scalar metadata that accompanies a written spectrum.
type Meta struct {
	Volume    float64
	ShotNoise float64
	N1, N2    float64
	BoxSize   [3]float64
}

// Metadata describes the spectrum of ntotal particles.
func (s *Spectrum) Metadata(ntotal float64) Meta {
	return Meta{
		Volume:    s.Volume,
		ShotNoise: s.Volume / ntotal,
		N1:        ntotal,
		N2:        ntotal,
		BoxSize:   s.BoxSize,
	}
}
