// Package particle holds particles in memory for a single rank.
package particle

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/pmgrav/internal/pm"
)

// Store keeps particle attributes as one slice per axis. Every particle is
// owned by this rank; it is used with NoGhosts.
type Store struct {
	pos [3][]float64
	vel [3][]float64
	acc [3][]float64

	local int
}

func New(n int) *Store {
	s := &Store{local: n}
	for d := 0; d < 3; d++ {
		s.pos[d] = make([]float64, n)
		s.vel[d] = make([]float64, n)
		s.acc[d] = make([]float64, n)
	}
	return s
}

func FromPositions(pos [][3]float64) *Store {
	s := New(len(pos))
	for i, p := range pos {
		s.SetPosition(i, p)
	}
	return s
}

// Lattice places nc^3 particles on a regular grid over a cubic box and
// displaces each by up to jitter cells, uniformly, on every axis.
func Lattice(nc int, box, jitter float64, seed int64) (*Store, error) {
	if nc < 1 {
		return nil, pm.Configf("lattice needs at least one particle per side, got %d", nc)
	}
	if !(box > 0) {
		return nil, pm.Configf("lattice box size must be positive, got %g", box)
	}

	rng := rand.New(rand.NewSource(seed))
	cell := box / float64(nc)
	s := New(nc * nc * nc)

	i := 0
	for x := 0; x < nc; x++ {
		for y := 0; y < nc; y++ {
			for z := 0; z < nc; z++ {
				p := [3]float64{float64(x) * cell, float64(y) * cell, float64(z) * cell}
				if jitter != 0 {
					for d := range p {
						p[d] += (rng.Float64() - 0.5) * jitter * cell
					}
				}
				s.SetPosition(i, p)
				i++
			}
		}
	}
	s.Wrap(box)
	return s, nil
}

// Len is the number of owned particles.
func (s *Store) Len() int { return s.local }

func (s *Store) Position(i int) [3]float64 {
	return [3]float64{s.pos[0][i], s.pos[1][i], s.pos[2][i]}
}

func (s *Store) Velocity(i int) [3]float64 {
	return [3]float64{s.vel[0][i], s.vel[1][i], s.vel[2][i]}
}

func (s *Store) Acceleration(i int) [3]float64 {
	return [3]float64{s.acc[0][i], s.acc[1][i], s.acc[2][i]}
}

func (s *Store) SetPosition(i int, p [3]float64) {
	s.pos[0][i], s.pos[1][i], s.pos[2][i] = p[0], p[1], p[2]
}

func (s *Store) SetVelocity(i int, v [3]float64) {
	s.vel[0][i], s.vel[1][i], s.vel[2][i] = v[0], v[1], v[2]
}

func (s *Store) SetAcceleration(i, axis int, v float64) {
	s.acc[axis][i] = v
}

// AccelerationAxis exposes one acceleration component of the owned
// particles. The slice aliases the store.
func (s *Store) AccelerationAxis(axis int) []float64 {
	return s.acc[axis][:s.local]
}

// Wrap maps owned positions into [0, box).
func (s *Store) Wrap(box float64) {
	for d := 0; d < 3; d++ {
		xs := s.pos[d][:s.local]
		for i, x := range xs {
			x = math.Mod(x, box)
			if x < 0 {
				x += box
			}
			// -tiny mod box rounds to box.
			if x >= box {
				x = 0
			}
			xs[i] = x
		}
	}
}

// Stats summarizes the accelerations of owned particles.
type Stats struct {
	Mean [3]float64
	RMS  float64
	Max  float64
}

func (s *Store) AccelerationStats() Stats {
	var st Stats
	if s.local == 0 {
		return st
	}
	n := float64(s.local)
	mag := make([]float64, s.local)
	for d := 0; d < 3; d++ {
		a := s.acc[d][:s.local]
		st.Mean[d] = floats.Sum(a) / n
		for i, v := range a {
			mag[i] += v * v
		}
	}
	st.RMS = math.Sqrt(floats.Sum(mag) / n)
	st.Max = math.Sqrt(floats.Max(mag))
	return st
}
