package power

import (
	"fmt"

	"github.com/san-kum/pmgrav/internal/comm"
	"github.com/san-kum/pmgrav/internal/grid"
	"github.com/san-kum/pmgrav/internal/pm"
	"github.com/san-kum/pmgrav/internal/spectral"
)

// EstimateSlabs measures the spectrum of a whole-mesh complex field the way
// that many in-process ranks would: each rank copies one slab of the
// half-complex array, estimates it and joins the all-reduce. The spectrum
// every rank ends with is returned.
func EstimateSlabs(field []float64, g *grid.Geometry, fac spectral.Factors, ranks int, opts Options) (*Spectrum, error) {
	if ranks < 1 {
		return nil, pm.Configf("slab estimate needs at least one rank, got %d", ranks)
	}
	if g.Complex.Start != ([3]int{}) || g.Complex.Size != g.HalfComplexSize() {
		return nil, pm.Configf("slab estimate needs the whole mesh, got region at %v size %v", g.Complex.Start, g.Complex.Size)
	}
	if len(field) != g.FieldLen() {
		return nil, fmt.Errorf("%w: spectrum field has %d values, mesh needs %d", pm.ErrFieldLength, len(field), g.FieldLen())
	}

	results := make([]*Spectrum, ranks)
	err := comm.Run(ranks, func(c pm.Communicator) error {
		sg, err := g.Slab(c.Rank(), c.Size())
		if err != nil {
			return err
		}

		local := make([]float64, sg.FieldLen())
		cur := sg.Complex.Cursor(0, sg.Complex.Total)
		for cur.Next() {
			src := 2 * g.Complex.Offset(cur.Global())
			dst := 2 * cur.Offset()
			local[dst], local[dst+1] = field[src], field[src+1]
		}

		ps := ForGeometry(sg)
		if err := Estimate(ps, local, sg, fac, c, opts); err != nil {
			return err
		}
		results[c.Rank()] = ps
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}
