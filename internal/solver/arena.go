package solver

import (
	"fmt"
	"sync"

	"github.com/san-kum/pmgrav/internal/pm"
)

// Arena hands out the scratch fields of force solves and recycles them
// per length. A non-zero limit caps the bytes checked out at once.
type Arena struct {
	mu    sync.Mutex
	limit int64
	inUse int64
	pools map[int]*sync.Pool
}

func NewArena(limitBytes int64) *Arena {
	return &Arena{limit: limitBytes, pools: make(map[int]*sync.Pool)}
}

func (a *Arena) pool(n int) *sync.Pool {
	p, ok := a.pools[n]
	if !ok {
		p = &sync.Pool{
			New: func() interface{} {
				return make([]float64, n)
			},
		}
		a.pools[n] = p
	}
	return p
}

// Get returns a zeroed buffer of n values.
func (a *Arena) Get(n int) ([]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	bytes := int64(n) * 8
	if a.limit > 0 && a.inUse+bytes > a.limit {
		return nil, fmt.Errorf("%w: need %d bytes with %d of %d in use", pm.ErrResourceExhausted, bytes, a.inUse, a.limit)
	}
	a.inUse += bytes
	return a.pool(n).Get().([]float64), nil
}

func (a *Arena) Put(buf []float64) {
	if buf == nil {
		return
	}
	for i := range buf {
		buf[i] = 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.inUse -= int64(len(buf)) * 8
	a.pool(len(buf)).Put(buf)
}

// InUse reports the bytes currently checked out.
func (a *Arena) InUse() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// scratch is the working set of one solve. canvas holds the transformed
// density and is only read by the transfer kernels; workspace receives
// their output. They never alias.
type scratch struct {
	real      []float64
	canvas    []float64
	workspace []float64
}

func (a *Arena) checkout(mesh pm.Mesh) (*scratch, error) {
	sc := &scratch{}
	var err error
	if sc.real, err = a.Get(mesh.RealLen()); err != nil {
		return nil, err
	}
	n := mesh.Geometry().FieldLen()
	if sc.canvas, err = a.Get(n); err != nil {
		a.release(sc)
		return nil, err
	}
	if sc.workspace, err = a.Get(n); err != nil {
		a.release(sc)
		return nil, err
	}
	return sc, nil
}

func (a *Arena) release(sc *scratch) {
	a.Put(sc.real)
	a.Put(sc.canvas)
	a.Put(sc.workspace)
}
