package particle

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pmgrav/internal/pm"
)

func TestLattice(t *testing.T) {
	s, err := Lattice(4, 8, 0, 1)
	if err != nil {
		t.Fatalf("lattice: %v", err)
	}
	if s.Len() != 64 {
		t.Fatalf("expected 64 particles, got %d", s.Len())
	}
	if s.Position(0) != [3]float64{0, 0, 0} {
		t.Errorf("first particle at %v", s.Position(0))
	}
	if s.Position(1) != [3]float64{0, 0, 2} || s.Position(63) != [3]float64{6, 6, 6} {
		t.Errorf("unexpected lattice spacing: %v %v", s.Position(1), s.Position(63))
	}
}

func TestLatticeJitterStaysInBox(t *testing.T) {
	s, err := Lattice(5, 10, 1.5, 7)
	if err != nil {
		t.Fatalf("lattice: %v", err)
	}
	moved := false
	for i := 0; i < s.Len(); i++ {
		p := s.Position(i)
		for d := 0; d < 3; d++ {
			if p[d] < 0 || p[d] >= 10 {
				t.Fatalf("particle %d outside box: %v", i, p)
			}
			if math.Mod(p[d], 2) != 0 {
				moved = true
			}
		}
	}
	if !moved {
		t.Error("jitter left every particle on the lattice")
	}
}

func TestLatticeRejectsBadInput(t *testing.T) {
	if _, err := Lattice(0, 1, 0, 0); !errors.Is(err, pm.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for empty lattice, got %v", err)
	}
	if _, err := Lattice(2, -1, 0, 0); !errors.Is(err, pm.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for negative box, got %v", err)
	}
}

func TestWrap(t *testing.T) {
	s := FromPositions([][3]float64{{-1, 10, 25}, {3, -1e-18, 9.5}})
	s.Wrap(10)

	if got := s.Position(0); got != [3]float64{9, 0, 5} {
		t.Errorf("expected {9 0 5}, got %v", got)
	}
	got := s.Position(1)
	if got[0] != 3 || got[1] < 0 || got[1] >= 10 || got[2] != 9.5 {
		t.Errorf("unexpected wrapped position %v", got)
	}
}

func TestAccelerationStats(t *testing.T) {
	s := New(2)
	s.SetAcceleration(0, 0, 3)
	s.SetAcceleration(0, 1, 4)
	s.SetAcceleration(1, 0, -3)

	st := s.AccelerationStats()
	if st.Mean != [3]float64{0, 2, 0} {
		t.Errorf("unexpected mean %v", st.Mean)
	}
	if st.Max != 5 {
		t.Errorf("expected max 5, got %g", st.Max)
	}
	if math.Abs(st.RMS-math.Sqrt(17)) > 1e-12 {
		t.Errorf("expected rms sqrt(17), got %g", st.RMS)
	}
}

func TestNoGhosts(t *testing.T) {
	g, err := NoGhosts{}.Append(New(3), nil, pm.AttrPosition)
	if err != nil || g.Count() != 0 {
		t.Fatalf("expected empty exchange, got %v %v", g, err)
	}
	if err := g.Reduce(pm.AttrAccZ); err != nil {
		t.Errorf("reduce: %v", err)
	}
	g.Release()
}
