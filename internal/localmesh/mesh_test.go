package localmesh

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/pmgrav/internal/grid"
	"github.com/san-kum/pmgrav/internal/particle"
	"github.com/san-kum/pmgrav/internal/pm"
)

func newMesh(t *testing.T, n int, opts Options) *Mesh {
	t.Helper()
	m, err := New(n, float64(n), opts)
	if err != nil {
		t.Fatalf("new mesh: %v", err)
	}
	return m
}

func randomReal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	f := make([]float64, n)
	for i := range f {
		f[i] = rng.NormFloat64()
	}
	return f
}

func TestRoundTripMultipliesByNorm(t *testing.T) {
	tests := []struct {
		name string
		n    int
		opts Options
	}{
		{"gonum", 8, Options{Backend: "gonum", Threads: 3}},
		{"gonum odd", 5, Options{Backend: "gonum"}},
		{"gonum transposed", 6, Options{Backend: "gonum", Layout: grid.Transposed, Threads: 2}},
		{"dsp", 8, Options{Backend: "dsp", Threads: 4}},
		{"dsp non power of two", 6, Options{Backend: "dsp", Layout: grid.Transposed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMesh(t, tt.n, tt.opts)
			orig := randomReal(m.RealLen(), 1)
			in := append([]float64(nil), orig...)
			field := make([]float64, m.Geometry().FieldLen())
			out := make([]float64, m.RealLen())

			if err := m.Forward(in, field); err != nil {
				t.Fatalf("forward: %v", err)
			}
			if err := m.Inverse(field, out); err != nil {
				t.Fatalf("inverse: %v", err)
			}

			norm := m.Geometry().Norm
			for i := range orig {
				if math.Abs(out[i]-norm*orig[i]) > 1e-9*norm {
					t.Fatalf("cell %d: expected %g, got %g", i, norm*orig[i], out[i])
				}
			}
		})
	}
}

func TestForwardOfCosineMode(t *testing.T) {
	m := newMesh(t, 8, Options{Layout: grid.Transposed})
	g := m.Geometry()
	n := g.Nmesh

	// cos(2 pi * 3x / n) along axis 0.
	in := make([]float64, m.RealLen())
	for x := 0; x < n[0]; x++ {
		v := math.Cos(2 * math.Pi * 3 * float64(x) / float64(n[0]))
		for yz := 0; yz < n[1]*n[2]; yz++ {
			in[x*n[1]*n[2]+yz] = v
		}
	}
	field := make([]float64, g.FieldLen())
	if err := m.Forward(in, field); err != nil {
		t.Fatalf("forward: %v", err)
	}

	half := g.Norm / 2
	cur := g.Complex.Cursor(0, g.Complex.Total)
	for cur.Next() {
		idx := cur.Global()
		re, im := field[2*cur.Offset()], field[2*cur.Offset()+1]
		want := 0.0
		if idx[1] == 0 && idx[2] == 0 && (idx[0] == 3 || idx[0] == 5) {
			want = half
		}
		if math.Abs(re-want) > 1e-9 || math.Abs(im) > 1e-9 {
			t.Errorf("mode %v: expected (%g, 0), got (%g, %g)", idx, want, re, im)
		}
	}
}

func TestBackendsAgree(t *testing.T) {
	a := newMesh(t, 6, Options{Backend: "gonum"})
	b := newMesh(t, 6, Options{Backend: "dsp"})
	in := randomReal(a.RealLen(), 2)

	fa := make([]float64, a.Geometry().FieldLen())
	fb := make([]float64, b.Geometry().FieldLen())
	if err := a.Forward(in, fa); err != nil {
		t.Fatal(err)
	}
	if err := b.Forward(in, fb); err != nil {
		t.Fatal(err)
	}
	for i := range fa {
		if math.Abs(fa[i]-fb[i]) > 1e-9 {
			t.Fatalf("value %d: gonum %g, dsp %g", i, fa[i], fb[i])
		}
	}
}

func TestPaintUniformLattice(t *testing.T) {
	m := newMesh(t, 6, Options{})
	store, err := particle.Lattice(6, 6, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	rho := make([]float64, m.RealLen())
	if err := m.Paint(rho, store, store.Len()); err != nil {
		t.Fatalf("paint: %v", err)
	}
	for i, v := range rho {
		if math.Abs(v-1) > 1e-12 {
			t.Fatalf("cell %d: expected 1, got %g", i, v)
		}
	}
}

func TestPaintConservesMassAndWraps(t *testing.T) {
	m := newMesh(t, 4, Options{})
	store := particle.FromPositions([][3]float64{
		{3.5, 3.5, 3.5},
		{-0.25, 1, 2},
		{2.1, 1.9, 100.3},
	})

	rho := make([]float64, m.RealLen())
	if err := m.Paint(rho, store, store.Len()); err != nil {
		t.Fatalf("paint: %v", err)
	}

	total := 0.0
	for _, v := range rho {
		if v < 0 {
			t.Fatalf("negative density %g", v)
		}
		total += v
	}
	if math.Abs(total-3) > 1e-12 {
		t.Errorf("expected total mass 3, got %g", total)
	}
	// The corner particle spreads equally over the eight cells around the
	// periodic corner.
	if math.Abs(rho[0]-0.125) > 1e-12 || math.Abs(rho[len(rho)-1]-0.125) > 1e-12 {
		t.Errorf("corner cells: %g %g", rho[0], rho[len(rho)-1])
	}
}

func TestReadoutInterpolatesLinearly(t *testing.T) {
	m := newMesh(t, 4, Options{})
	rho := make([]float64, m.RealLen())
	for i := range rho {
		rho[i] = 2
	}
	if got := m.Readout(rho, [3]float64{1.3, -2.7, 9.1}); math.Abs(got-2) > 1e-12 {
		t.Errorf("constant field read back as %g", got)
	}

	for i := range rho {
		rho[i] = 0
	}
	rho[(1*4+2)*4+3] = 8
	if got := m.Readout(rho, [3]float64{1, 2, 3}); got != 8 {
		t.Errorf("expected exact cell value, got %g", got)
	}
	if got := m.Readout(rho, [3]float64{1.5, 2, 3}); math.Abs(got-4) > 1e-12 {
		t.Errorf("expected half-way value 4, got %g", got)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(1, 1, Options{}); !errors.Is(err, pm.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for tiny mesh, got %v", err)
	}
	if _, err := New(4, 1, Options{Backend: "fftw"}); !errors.Is(err, pm.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for unknown backend, got %v", err)
	}
	if _, err := New(4, 0, Options{}); !errors.Is(err, pm.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for empty box, got %v", err)
	}
}

func TestFieldLengthChecks(t *testing.T) {
	m := newMesh(t, 4, Options{})
	good := make([]float64, m.Geometry().FieldLen())
	if err := m.Forward(make([]float64, 3), good); !errors.Is(err, pm.ErrFieldLength) {
		t.Errorf("expected ErrFieldLength, got %v", err)
	}
	if err := m.Inverse(good[:4], make([]float64, m.RealLen())); !errors.Is(err, pm.ErrFieldLength) {
		t.Errorf("expected ErrFieldLength, got %v", err)
	}
	if err := m.Paint(nil, particle.New(0), 0); !errors.Is(err, pm.ErrFieldLength) {
		t.Errorf("expected ErrFieldLength, got %v", err)
	}
}

func TestPlannerAndBackends(t *testing.T) {
	plan := Planner(50, Options{})
	mesh, err := plan(10)
	if err != nil {
		t.Fatal(err)
	}
	if mesh.Geometry().Nmesh != [3]int{10, 10, 10} || mesh.Geometry().BoxSize[2] != 50 {
		t.Errorf("unexpected geometry %+v", mesh.Geometry())
	}
	if mesh.Comm().Size() != 1 {
		t.Errorf("local mesh should be single rank")
	}
	if got := Backends(); len(got) != 2 || got[0] != "dsp" || got[1] != "gonum" {
		t.Errorf("unexpected backends %v", got)
	}
}
