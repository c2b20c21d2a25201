// Package comm provides communicators for ranks that share a mesh: a
// single-rank communicator and an in-process group whose ranks run as
// goroutines.
package comm

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/pmgrav/internal/pm"
)

type self struct{}

// Self is the communicator of a run with one rank. Reductions are no-ops.
func Self() pm.Communicator { return self{} }

func (self) Rank() int                            { return 0 }
func (self) Size() int                            { return 1 }
func (self) AllReduceSum(bufs ...[]float64) error { return nil }

// Group is a set of in-process ranks. Every rank must take part in every
// reduction; a rank that never arrives blocks the others forever.
type Group struct {
	size int

	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	gen     uint64
	acc     [][]float64
	result  [][]float64
	err     error
	lastErr error
}

func NewGroup(size int) (*Group, error) {
	if size < 1 {
		return nil, pm.Configf("communicator size must be positive, got %d", size)
	}
	g := &Group{size: size}
	g.cond = sync.NewCond(&g.mu)
	return g, nil
}

func (g *Group) Size() int { return g.size }

// Rank returns the communicator seen by rank r.
func (g *Group) Rank(r int) pm.Communicator {
	return &member{group: g, rank: r}
}

type member struct {
	group *Group
	rank  int
}

func (m *member) Rank() int { return m.rank }
func (m *member) Size() int { return m.group.size }

func (m *member) AllReduceSum(bufs ...[]float64) error {
	return m.group.allReduce(bufs)
}

func (g *Group) allReduce(bufs [][]float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.arrived == 0 {
		g.acc = make([][]float64, len(bufs))
		for i, b := range bufs {
			g.acc[i] = append([]float64(nil), b...)
		}
		g.err = nil
	} else if g.err == nil {
		g.err = accumulate(g.acc, bufs)
	}

	g.arrived++
	gen := g.gen
	if g.arrived == g.size {
		g.result, g.lastErr = g.acc, g.err
		g.acc = nil
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
	} else {
		for gen == g.gen {
			g.cond.Wait()
		}
	}

	// The result of this generation stays in place until every rank has
	// arrived at the next reduction, which includes this one.
	if g.lastErr != nil {
		return g.lastErr
	}
	for i, b := range bufs {
		copy(b, g.result[i])
	}
	return nil
}

func accumulate(acc, bufs [][]float64) error {
	if len(acc) != len(bufs) {
		return fmt.Errorf("comm: reduction of %d buffers joined one of %d", len(bufs), len(acc))
	}
	for i, b := range bufs {
		if len(b) != len(acc[i]) {
			return fmt.Errorf("comm: buffer %d has length %d, other ranks use %d", i, len(b), len(acc[i]))
		}
		for j, v := range b {
			acc[i][j] += v
		}
	}
	return nil
}

// Run starts fn once per rank of a new group of the given size and waits
// for all of them. It returns the first error.
func Run(size int, fn func(c pm.Communicator) error) error {
	g, err := NewGroup(size)
	if err != nil {
		return err
	}

	var eg errgroup.Group
	for r := 0; r < size; r++ {
		c := g.Rank(r)
		eg.Go(func() error {
			return fn(c)
		})
	}
	return eg.Wait()
}
