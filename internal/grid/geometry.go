package grid

import (
	"fmt"
	"math"
)

// Geometry is the read-only description of one distributed mesh as seen
// by a single rank.
type Geometry struct {
	Nmesh   [3]int
	BoxSize [3]float64
	Volume  float64
	// Norm is the number of mesh cells. A forward transform followed by an
	// inverse one multiplies a field by Norm.
	Norm float64

	Layout  Layout
	Complex Region

	// K maps a global index along each axis to its physical wavenumber.
	K [3][]float64
}

func NewGeometry(nmesh [3]int, box [3]float64, layout Layout) (*Geometry, error) {
	for d := 0; d < 3; d++ {
		if nmesh[d] < 0 {
			return nil, fmt.Errorf("grid: negative mesh size %d on axis %d", nmesh[d], d)
		}
		if !(box[d] > 0) {
			return nil, fmt.Errorf("grid: box size on axis %d must be positive, got %g", d, box[d])
		}
	}

	g := &Geometry{
		Nmesh:   nmesh,
		BoxSize: box,
		Volume:  box[0] * box[1] * box[2],
		Norm:    float64(nmesh[0]) * float64(nmesh[1]) * float64(nmesh[2]),
		Layout:  layout,
	}

	region, err := NewRegion([3]int{}, g.HalfComplexSize(), layout)
	if err != nil {
		return nil, err
	}
	g.Complex = region

	for d := 0; d < 3; d++ {
		g.K[d] = Wavenumbers(nmesh[d], box[d])
	}
	return g, nil
}

// Wavenumbers returns the physical wavenumber of every index of an axis
// with n points spanning length l. The Nyquist index n/2 is positive.
func Wavenumbers(n int, l float64) []float64 {
	k := make([]float64, n)
	k0 := 2 * math.Pi / l
	for i := 0; i < n; i++ {
		ii := i
		if ii > n/2 {
			ii -= n
		}
		k[i] = float64(ii) * k0
	}
	return k
}

// HalfComplexSize is the shape of the full r2c output array.
func (g *Geometry) HalfComplexSize() [3]int {
	n2 := 0
	if g.Nmesh[2] > 0 {
		n2 = g.Nmesh[2]/2 + 1
	}
	return [3]int{g.Nmesh[0], g.Nmesh[1], n2}
}

func (g *Geometry) CellSize() [3]float64 {
	var h [3]float64
	for d := 0; d < 3; d++ {
		if g.Nmesh[d] > 0 {
			h[d] = g.BoxSize[d] / float64(g.Nmesh[d])
		}
	}
	return h
}

// FundamentalK is the wavenumber of the box-scale mode along axis 0.
func (g *Geometry) FundamentalK() float64 {
	return 2 * math.Pi / g.BoxSize[0]
}

// RealSize is the number of real cells in the full mesh.
func (g *Geometry) RealSize() int {
	return g.Nmesh[0] * g.Nmesh[1] * g.Nmesh[2]
}

// FieldLen is the length of an interleaved complex field over the local
// region.
func (g *Geometry) FieldLen() int {
	return 2 * g.Complex.Total
}

// Slab returns a copy of g whose complex region is the rank-th of size
// contiguous slabs along the slowest storage axis. With more ranks than
// planes some ranks own nothing.
func (g *Geometry) Slab(rank, size int) (*Geometry, error) {
	if size < 1 || rank < 0 || rank >= size {
		return nil, fmt.Errorf("grid: rank %d out of range for %d ranks", rank, size)
	}

	full := g.HalfComplexSize()
	axis := g.Layout.order()[0]
	lo := rank * full[axis] / size
	hi := (rank + 1) * full[axis] / size

	start := [3]int{}
	shape := full
	start[axis] = lo
	shape[axis] = hi - lo

	region, err := NewRegion(start, shape, g.Layout)
	if err != nil {
		return nil, err
	}

	out := *g
	out.Complex = region
	return &out, nil
}
