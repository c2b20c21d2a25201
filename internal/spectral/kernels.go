package spectral

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/san-kum/pmgrav/internal/grid"
	"github.com/san-kum/pmgrav/internal/pm"
)

// CheckFields verifies that dst and src cover the local region and do not
// share memory.
func CheckFields(dst, src []float64, g *grid.Geometry) error {
	n := g.FieldLen()
	if len(dst) != n || len(src) != n {
		return fmt.Errorf("%w: want %d, got dst %d src %d", pm.ErrFieldLength, n, len(dst), len(src))
	}
	if overlaps(dst, src) {
		return pm.ErrAliasedFields
	}
	return nil
}

func overlaps(a, b []float64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	const size = unsafe.Sizeof(float64(0))
	a0 := uintptr(unsafe.Pointer(&a[0]))
	b0 := uintptr(unsafe.Pointer(&b[0]))
	a1 := a0 + uintptr(len(a))*size
	b1 := b0 + uintptr(len(b))*size
	return a0 < b1 && b0 < a1
}

// ForceComponent writes into dst the Fourier-space force along axis for the
// density in src: src * (-i KFinite[axis] / sum KKFinite). The zero mode is
// set to zero.
func ForceComponent(dst, src []float64, g *grid.Geometry, fac Factors, axis, threads int) error {
	if axis < 0 || axis > 2 {
		return fmt.Errorf("spectral: axis %d out of range", axis)
	}
	if err := CheckFields(dst, src, g); err != nil {
		return err
	}

	grid.ForEachChunk(&g.Complex, threads, func(_ int, c *grid.Cursor) {
		for c.Next() {
			k := c.Global()
			ind := 2 * c.Offset()

			kkFinite := fac.KKFinite(k)
			if kkFinite > 0 {
				f := fac[axis][k[axis]].KFinite / kkFinite
				dst[ind+0] = src[ind+1] * f
				dst[ind+1] = -src[ind+0] * f
			} else {
				dst[ind+0] = 0
				dst[ind+1] = 0
			}
		}
	})
	return nil
}

// Smooth writes into dst the density in src convolved with a Gaussian of
// scale rs. fac is only read.
func Smooth(dst, src []float64, g *grid.Geometry, fac Factors, rs float64, threads int) error {
	if err := CheckFields(dst, src, g); err != nil {
		return err
	}

	var w [3][]float64
	for d := 0; d < 3; d++ {
		w[d] = make([]float64, len(fac[d]))
		for i, f := range fac[d] {
			w[d][i] = math.Exp(-0.5 * f.KK * rs * rs)
		}
	}

	grid.ForEachChunk(&g.Complex, threads, func(_ int, c *grid.Cursor) {
		for c.Next() {
			k := c.Global()
			ind := 2 * c.Offset()

			if fac.KK(k) > 0 {
				smth := w[0][k[0]] * w[1][k[1]] * w[2][k[2]]
				dst[ind+0] = src[ind+0] * smth
				dst[ind+1] = src[ind+1] * smth
			} else {
				dst[ind+0] = 0
				dst[ind+1] = 0
			}
		}
	})
	return nil
}
