// Package dispatch runs data-parallel kernels over index ranges. Each call
// returns only after every invocation has finished, which is the full
// completion barrier the field, boundary and source stages rely on.
package dispatch

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool bounds the number of goroutines used by a dispatch
type Pool struct {
	Workers int
}

// NewPool returns a pool of the given width; workers <= 0 means GOMAXPROCS
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{Workers: workers}
}

// Default is a pool sized to GOMAXPROCS
var Default = NewPool(0)

// Range invokes fn(lo, hi) over contiguous chunks covering [0, n). Chunks
// are disjoint so each index has exactly one owner.
func (p *Pool) Range(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	workers := p.workers()
	if workers == 1 || n == 1 {
		fn(0, n)
		return
	}
	chunks := min(n, workers*4)
	step := (n + chunks - 1) / chunks
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += step {
		lo, hi := lo, min(lo+step, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

// Each invokes fn(i) for every i in [0, n)
func (p *Pool) Each(n int, fn func(i int)) {
	p.Range(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			fn(i)
		}
	})
}

// Box invokes fn for every cell of an nx×ny×nz box, splitting the work
// by z-planes (or y-rows when the box is a single plane)
func (p *Pool) Box(nx, ny, nz int, fn func(x, y, z int)) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return
	}
	if nz == 1 {
		p.Each(ny, func(y int) {
			for x := 0; x < nx; x++ {
				fn(x, y, 0)
			}
		})
		return
	}
	p.Each(nz, func(z int) {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				fn(x, y, z)
			}
		}
	})
}

// Group runs fn(lane) on `lanes` goroutines at once and waits for all of
// them. Unlike Range, every lane is live concurrently, so lanes may
// synchronize with each other through a Barrier.
func (p *Pool) Group(lanes int, fn func(lane int)) {
	var g errgroup.Group
	for lane := 0; lane < lanes; lane++ {
		g.Go(func() error {
			fn(lane)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pool) workers() int {
	if p == nil || p.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return p.Workers
}
