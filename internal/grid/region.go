package grid

import "fmt"

type Layout int

const (
	// RowMajor stores axis 0 slowest and axis 2 fastest.
	RowMajor Layout = iota
	// Transposed stores axis 1 slowest, then axis 0, then axis 2.
	Transposed
)

func (l Layout) order() [3]int {
	if l == Transposed {
		return [3]int{1, 0, 2}
	}
	return [3]int{0, 1, 2}
}

func (l Layout) String() string {
	if l == Transposed {
		return "transposed"
	}
	return "row-major"
}

// Region is the block of a complex array owned by one rank. Offsets and
// strides count complex elements, so real slot 2*off is the real part and
// 2*off+1 the imaginary part.
type Region struct {
	Start   [3]int
	Size    [3]int
	Strides [3]int
	Total   int

	// Order lists the axes from slowest to fastest varying.
	Order [3]int
}

func NewRegion(start, size [3]int, layout Layout) (Region, error) {
	for d := 0; d < 3; d++ {
		if size[d] < 0 || start[d] < 0 {
			return Region{}, fmt.Errorf("grid: negative region bound on axis %d (start %d, size %d)", d, start[d], size[d])
		}
	}

	r := Region{Start: start, Size: size, Order: layout.order()}
	stride := 1
	for j := 2; j >= 0; j-- {
		d := r.Order[j]
		r.Strides[d] = stride
		stride *= size[d]
	}
	r.Total = size[0] * size[1] * size[2]
	return r, nil
}

func (r *Region) Empty() bool { return r.Total == 0 }

// Unravel converts a linear offset into a local multi-axis index. It must
// not be called on an empty region.
func (r *Region) Unravel(off int) [3]int {
	var idx [3]int
	for _, d := range r.Order {
		idx[d] = off / r.Strides[d]
		off %= r.Strides[d]
	}
	return idx
}

// Increment advances idx to the index of the next linear offset.
func (r *Region) Increment(idx *[3]int) {
	for j := 2; j >= 0; j-- {
		d := r.Order[j]
		idx[d]++
		if idx[d] < r.Size[d] || j == 0 {
			return
		}
		idx[d] = 0
	}
}

func (r *Region) Offset(idx [3]int) int {
	return idx[0]*r.Strides[0] + idx[1]*r.Strides[1] + idx[2]*r.Strides[2]
}

// Contains reports whether the global index g lies inside the region.
func (r *Region) Contains(g [3]int) bool {
	for d := 0; d < 3; d++ {
		if g[d] < r.Start[d] || g[d] >= r.Start[d]+r.Size[d] {
			return false
		}
	}
	return true
}

// Cursor walks the offsets [begin, end) of a region.
type Cursor struct {
	r          *Region
	begin, end int
	off        int
	primed     bool
	idx        [3]int
}

func (r *Region) Cursor(begin, end int) *Cursor {
	if begin < 0 {
		begin = 0
	}
	if end > r.Total {
		end = r.Total
	}
	return &Cursor{r: r, begin: begin, end: end, off: begin}
}

// Next moves to the next offset. The first call unravels the starting
// offset; an empty range returns false without touching the region.
func (c *Cursor) Next() bool {
	if c.off >= c.end {
		return false
	}
	if !c.primed {
		c.idx = c.r.Unravel(c.off)
		c.primed = true
		return true
	}
	if c.off+1 >= c.end {
		c.off = c.end
		return false
	}
	c.off++
	c.r.Increment(&c.idx)
	return true
}

// Reset rewinds the cursor to the start of its range.
func (c *Cursor) Reset() {
	c.off = c.begin
	c.primed = false
}

func (c *Cursor) Len() int {
	if c.end <= c.begin {
		return 0
	}
	return c.end - c.begin
}

func (c *Cursor) Bounds() (begin, end int) { return c.begin, c.end }

// Offset is the complex offset of the current element.
func (c *Cursor) Offset() int { return c.off }

// Local is the multi-axis index of the current element inside the region.
func (c *Cursor) Local() [3]int { return c.idx }

// Global is the multi-axis index of the current element in the full mesh.
func (c *Cursor) Global() [3]int {
	return [3]int{
		c.idx[0] + c.r.Start[0],
		c.idx[1] + c.r.Start[1],
		c.idx[2] + c.r.Start[2],
	}
}
