package grid

import (
	"runtime"
	"sync"
)

// Threads resolves a requested worker count; values below one mean one
// worker per available CPU.
func Threads(n int) int {
	if n < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// Partition splits the region into n contiguous cursors. Chunk i covers
// offsets [i*Total/n, (i+1)*Total/n), so chunks never overlap and some may
// be empty.
func (r *Region) Partition(n int) []*Cursor {
	if n < 1 {
		n = 1
	}
	cursors := make([]*Cursor, n)
	for i := 0; i < n; i++ {
		cursors[i] = r.Cursor(i*r.Total/n, (i+1)*r.Total/n)
	}
	return cursors
}

// ForEachChunk runs fn once per non-empty chunk of the region, each on its
// own goroutine, and waits for all of them. The worker argument is the
// chunk number, so per-worker scratch can be indexed by it.
func ForEachChunk(r *Region, threads int, fn func(worker int, c *Cursor)) {
	cursors := r.Partition(Threads(threads))

	if len(cursors) == 1 {
		if cursors[0].Len() > 0 {
			fn(0, cursors[0])
		}
		return
	}

	var wg sync.WaitGroup
	for w, c := range cursors {
		if c.Len() == 0 {
			continue
		}
		wg.Add(1)
		go func(worker int, c *Cursor) {
			defer wg.Done()
			fn(worker, c)
		}(w, c)
	}
	wg.Wait()
}

// ParallelFor executes fn in parallel over [0, n) split into contiguous
// ranges of at least minChunk elements.
func ParallelFor(n, threads, minChunk int, fn func(start, end int)) {
	workers := Threads(threads)
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || workers <= 1 {
		if n > 0 {
			fn(0, n)
		}
		return
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}
