// Package reference computes particle accelerations by direct tree-code
// summation, for checking mesh forces away from the mesh scale.
package reference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pmgrav/internal/particle"
)

type body struct {
	pos r3.Vec
}

func (b *body) Coord3() r3.Vec { return b.pos }
func (b *body) Mass() float64  { return 1 }

// TreeAccelerations returns Barnes-Hut accelerations of the owned particles
// of store, in the units of the mesh force: unit mass per particle, density
// counted per particle-grid cell of volume cellVolume, and the sign and
// 1/(4 pi) of the spectral transfer kernel. The tree is not periodic.
func TreeAccelerations(store *particle.Store, cellVolume, theta float64) ([][3]float64, error) {
	n := store.Len()
	bodies := make([]barneshut.Particle3, n)
	for i := 0; i < n; i++ {
		p := store.Position(i)
		bodies[i] = &body{pos: r3.Vec{X: p[0], Y: p[1], Z: p[2]}}
	}

	vol, err := barneshut.NewVolume(bodies)
	if err != nil {
		return nil, fmt.Errorf("reference: build tree: %w", err)
	}

	scale := -cellVolume / (4 * math.Pi)
	acc := make([][3]float64, n)
	for i, b := range bodies {
		f := vol.ForceOn(b, theta, barneshut.Gravity3)
		acc[i] = [3]float64{f.X * scale, f.Y * scale, f.Z * scale}
	}
	return acc, nil
}

// Comparison summarizes how far one set of accelerations is from another.
type Comparison struct {
	// RelativeRMS is the rms difference over the rms reference magnitude.
	RelativeRMS float64
	// Alignment is the mean cosine between paired vectors.
	Alignment float64
}

func Compare(got, want [][3]float64) (Comparison, error) {
	if len(got) != len(want) {
		return Comparison{}, fmt.Errorf("reference: comparing %d accelerations with %d", len(got), len(want))
	}
	if len(got) == 0 {
		return Comparison{}, nil
	}

	diff := make([]float64, 0, 3*len(got))
	ref := make([]float64, 0, 3*len(got))
	cosines := make([]float64, len(got))
	for i := range got {
		g, w := got[i][:], want[i][:]
		for d := 0; d < 3; d++ {
			diff = append(diff, g[d]-w[d])
		}
		ref = append(ref, w...)
		if ng, nw := floats.Norm(g, 2), floats.Norm(w, 2); ng > 0 && nw > 0 {
			cosines[i] = floats.Dot(g, w) / (ng * nw)
		}
	}

	var c Comparison
	if r := floats.Norm(ref, 2); r > 0 {
		c.RelativeRMS = floats.Norm(diff, 2) / r
	}
	c.Alignment = floats.Sum(cosines) / float64(len(cosines))
	return c, nil
}
