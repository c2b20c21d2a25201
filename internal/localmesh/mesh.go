// Package localmesh is a single-rank pm.Mesh. It owns the whole
// half-complex array, paints particles with cloud-in-cell weights and
// transforms with one-dimensional line FFTs along each axis.
package localmesh

import (
	"fmt"
	"math"

	"github.com/san-kum/pmgrav/internal/comm"
	"github.com/san-kum/pmgrav/internal/grid"
	"github.com/san-kum/pmgrav/internal/pm"
)

// Lines below this count per worker are transformed inline.
const minLines = 8

type Options struct {
	// Backend names the line transform, "gonum" or "dsp".
	Backend string
	Layout  grid.Layout
	Threads int
}

// Mesh is not safe for concurrent use; Forward and Inverse share a work
// array.
type Mesh struct {
	geom    *grid.Geometry
	cell    [3]float64
	plan    planner
	threads int
	work    []complex128
}

// New plans an nmesh^3 mesh over a cubic box of side boxSize.
func New(nmesh int, boxSize float64, opts Options) (*Mesh, error) {
	if nmesh < 2 {
		return nil, pm.Configf("local mesh needs at least 2 cells per side, got %d", nmesh)
	}
	plan, err := lookupBackend(opts.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pm.ErrConfiguration, err)
	}
	g, err := grid.NewGeometry([3]int{nmesh, nmesh, nmesh}, [3]float64{boxSize, boxSize, boxSize}, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pm.ErrConfiguration, err)
	}

	full := g.HalfComplexSize()
	return &Mesh{
		geom:    g,
		cell:    g.CellSize(),
		plan:    plan,
		threads: opts.Threads,
		work:    make([]complex128, full[0]*full[1]*full[2]),
	}, nil
}

// Planner adapts New to the per-resolution planning hook of a mesh set.
func Planner(boxSize float64, opts Options) func(nmesh int) (pm.Mesh, error) {
	return func(nmesh int) (pm.Mesh, error) {
		return New(nmesh, boxSize, opts)
	}
}

func (m *Mesh) Geometry() *grid.Geometry { return m.geom }
func (m *Mesh) Comm() pm.Communicator    { return comm.Self() }
func (m *Mesh) RealLen() int             { return m.geom.RealSize() }

func (m *Mesh) checkLengths(rfield, cfield []float64) error {
	if len(rfield) != m.RealLen() {
		return fmt.Errorf("%w: real field has %d values, mesh needs %d", pm.ErrFieldLength, len(rfield), m.RealLen())
	}
	if len(cfield) != m.geom.FieldLen() {
		return fmt.Errorf("%w: complex field has %d values, mesh needs %d", pm.ErrFieldLength, len(cfield), m.geom.FieldLen())
	}
	return nil
}

// Forward transforms a row-major real field into the half-complex field.
func (m *Mesh) Forward(rfield, cfield []float64) error {
	if err := m.checkLengths(rfield, cfield); err != nil {
		return err
	}
	n := m.geom.Nmesh
	h := n[2]/2 + 1

	grid.ParallelFor(n[0]*n[1], m.threads, minLines, func(start, end int) {
		line := m.plan(n[2])
		for xy := start; xy < end; xy++ {
			line.RealForward(m.work[xy*h:(xy+1)*h], rfield[xy*n[2]:(xy+1)*n[2]])
		}
	})
	m.transformStrided(false)

	m.scatter(cfield)
	return nil
}

// Inverse transforms the half-complex field back to a row-major real
// field. cfield is left untouched.
func (m *Mesh) Inverse(cfield, rfield []float64) error {
	if err := m.checkLengths(rfield, cfield); err != nil {
		return err
	}
	n := m.geom.Nmesh
	h := n[2]/2 + 1

	m.gather(cfield)
	m.transformStrided(true)

	grid.ParallelFor(n[0]*n[1], m.threads, minLines, func(start, end int) {
		line := m.plan(n[2])
		for xy := start; xy < end; xy++ {
			line.RealInverse(rfield[xy*n[2]:(xy+1)*n[2]], m.work[xy*h:(xy+1)*h])
		}
	})
	return nil
}

// transformStrided runs the complex transforms along axes 1 and 0 of the
// work array, in that order going forward and reversed going back.
func (m *Mesh) transformStrided(inverse bool) {
	n := m.geom.Nmesh
	h := n[2]/2 + 1

	axisY := func() {
		grid.ParallelFor(n[0]*h, m.threads, minLines, func(start, end int) {
			m.lines(n[1], h, start, end, func(i int) int {
				return (i/h)*n[1]*h + i%h
			}, inverse)
		})
	}
	axisX := func() {
		grid.ParallelFor(n[1]*h, m.threads, minLines, func(start, end int) {
			m.lines(n[0], n[1]*h, start, end, func(i int) int {
				return i
			}, inverse)
		})
	}

	if inverse {
		axisX()
		axisY()
		return
	}
	axisY()
	axisX()
}

// lines transforms lines [start, end) of length n and stride, where base
// maps a line number to its first element.
func (m *Mesh) lines(n, stride, start, end int, base func(int) int, inverse bool) {
	line := m.plan(n)
	in := make([]complex128, n)
	out := make([]complex128, n)
	for i := start; i < end; i++ {
		b := base(i)
		for j := 0; j < n; j++ {
			in[j] = m.work[b+j*stride]
		}
		if inverse {
			line.Inverse(out, in)
		} else {
			line.Forward(out, in)
		}
		for j := 0; j < n; j++ {
			m.work[b+j*stride] = out[j]
		}
	}
}

// workIndex maps a global half-complex index to the dense work array.
func (m *Mesh) workIndex(idx [3]int) int {
	h := m.geom.Nmesh[2]/2 + 1
	return (idx[0]*m.geom.Nmesh[1]+idx[1])*h + idx[2]
}

func (m *Mesh) scatter(cfield []float64) {
	grid.ForEachChunk(&m.geom.Complex, m.threads, func(_ int, cur *grid.Cursor) {
		for cur.Next() {
			c := m.work[m.workIndex(cur.Global())]
			cfield[2*cur.Offset()] = real(c)
			cfield[2*cur.Offset()+1] = imag(c)
		}
	})
}

func (m *Mesh) gather(cfield []float64) {
	grid.ForEachChunk(&m.geom.Complex, m.threads, func(_ int, cur *grid.Cursor) {
		for cur.Next() {
			off := 2 * cur.Offset()
			m.work[m.workIndex(cur.Global())] = complex(cfield[off], cfield[off+1])
		}
	})
}

// stencil returns the two cells along each axis that a cloud-in-cell
// particle at pos overlaps, wrapped periodically, and their weights.
func (m *Mesh) stencil(pos [3]float64) (cells [3][2]int, weights [3][2]float64) {
	for d := 0; d < 3; d++ {
		n := m.geom.Nmesh[d]
		x := pos[d] / m.cell[d]
		i := math.Floor(x)
		f := x - i
		lo := wrap(int(i), n)
		cells[d] = [2]int{lo, wrap(lo+1, n)}
		weights[d] = [2]float64{1 - f, f}
	}
	return cells, weights
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Paint deposits unit mass per particle, so a uniform distribution with
// one particle per cell paints 1 everywhere.
func (m *Mesh) Paint(rfield []float64, store pm.ParticleStore, n int) error {
	if len(rfield) != m.RealLen() {
		return fmt.Errorf("%w: paint target has %d values, mesh needs %d", pm.ErrFieldLength, len(rfield), m.RealLen())
	}
	for i := range rfield {
		rfield[i] = 0
	}

	n1, n2 := m.geom.Nmesh[1], m.geom.Nmesh[2]
	for p := 0; p < n; p++ {
		cells, w := m.stencil(store.Position(p))
		for a := 0; a < 2; a++ {
			for b := 0; b < 2; b++ {
				row := (cells[0][a]*n1 + cells[1][b]) * n2
				wab := w[0][a] * w[1][b]
				rfield[row+cells[2][0]] += wab * w[2][0]
				rfield[row+cells[2][1]] += wab * w[2][1]
			}
		}
	}
	return nil
}

func (m *Mesh) Readout(rfield []float64, pos [3]float64) float64 {
	n1, n2 := m.geom.Nmesh[1], m.geom.Nmesh[2]
	cells, w := m.stencil(pos)

	var v float64
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			row := (cells[0][a]*n1 + cells[1][b]) * n2
			wab := w[0][a] * w[1][b]
			v += wab * (w[2][0]*rfield[row+cells[2][0]] + w[2][1]*rfield[row+cells[2][1]])
		}
	}
	return v
}
