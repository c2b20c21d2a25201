package solver

import (
	"fmt"

	"github.com/san-kum/pmgrav/internal/grid"
	"github.com/san-kum/pmgrav/internal/pm"
)

// recorder collects collaborator calls in order.
type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

type fakeComm struct{ rec *recorder }

func (c fakeComm) Rank() int { return 0 }
func (c fakeComm) Size() int { return 1 }
func (c fakeComm) AllReduceSum(bufs ...[]float64) error {
	c.rec.add("allreduce %d", len(bufs))
	return nil
}

type fakeMesh struct {
	rec      *recorder
	geom     *grid.Geometry
	paintErr error
	fwdErr   error
}

func newFakeMesh(rec *recorder, n int) *fakeMesh {
	g, err := grid.NewGeometry([3]int{n, n, n}, [3]float64{1, 1, 1}, grid.RowMajor)
	if err != nil {
		panic(err)
	}
	return &fakeMesh{rec: rec, geom: g}
}

func (m *fakeMesh) Geometry() *grid.Geometry { return m.geom }
func (m *fakeMesh) Comm() pm.Communicator    { return fakeComm{m.rec} }
func (m *fakeMesh) RealLen() int             { return m.geom.RealSize() }

func (m *fakeMesh) Forward(real, complex []float64) error {
	m.rec.add("forward")
	return m.fwdErr
}

func (m *fakeMesh) Inverse(complex, real []float64) error {
	m.rec.add("inverse")
	return nil
}

func (m *fakeMesh) Paint(real []float64, store pm.ParticleStore, n int) error {
	m.rec.add("paint %d", n)
	return m.paintErr
}

func (m *fakeMesh) Readout(real []float64, pos [3]float64) float64 { return 1 }

type fakeStore struct {
	pos [][3]float64
	acc [][3]float64
	own int
}

func newFakeStore(own, ghosts int) *fakeStore {
	return &fakeStore{
		pos: make([][3]float64, own+ghosts),
		acc: make([][3]float64, own+ghosts),
		own: own,
	}
}

func (s *fakeStore) Len() int                               { return s.own }
func (s *fakeStore) Position(i int) [3]float64              { return s.pos[i] }
func (s *fakeStore) Velocity(i int) [3]float64              { return [3]float64{} }
func (s *fakeStore) SetAcceleration(i, axis int, v float64) { s.acc[i][axis] = v }

type fakeExchanger struct {
	rec       *recorder
	count     int
	appendErr error
	reduceErr error
}

func (x *fakeExchanger) Append(store pm.ParticleStore, mesh pm.Mesh, attrs pm.Attribute) (pm.Ghosts, error) {
	x.rec.add("append %b", attrs)
	if x.appendErr != nil {
		return nil, x.appendErr
	}
	return &fakeGhosts{x: x}, nil
}

type fakeGhosts struct{ x *fakeExchanger }

func (g *fakeGhosts) Count() int { return g.x.count }

func (g *fakeGhosts) Reduce(attr pm.Attribute) error {
	g.x.rec.add("reduce %b", attr)
	return g.x.reduceErr
}

func (g *fakeGhosts) Release() { g.x.rec.add("release") }
