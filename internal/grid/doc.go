// Package grid describes the distributed mesh seen by one rank.
//
// A [Geometry] carries the global mesh shape, the physical box and the
// per-axis wavenumber tables. Its [Region] describes the part of the
// half-complex Fourier array owned by this rank, which may be transposed
// and may be empty.
//
// Loops over a region go through a [Cursor]: the multi-axis index of the
// first offset is derived once and every later index is reached by an O(1)
// increment. [Region.Partition] splits a region into disjoint cursors, one
// per worker goroutine.
//
// # Example
//
//	g, _ := grid.NewGeometry([3]int{64, 64, 64}, [3]float64{100, 100, 100}, grid.RowMajor)
//	grid.ForEachChunk(&g.Complex, 0, func(worker int, c *grid.Cursor) {
//		for c.Next() {
//			k := c.Global()
//			_ = field[2*c.Offset()] * g.K[0][k[0]]
//		}
//	})
package grid
