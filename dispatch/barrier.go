package dispatch

import "sync"

// Barrier is a reusable rendezvous for a fixed number of goroutines. Wait
// blocks until all parties have arrived, then releases them together and
// resets for the next phase.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	pending int
	phase   uint64
}

// NewBarrier creates a barrier for n parties
func NewBarrier(n int) *Barrier {
	if n <= 0 {
		panic("barrier needs at least one party")
	}
	b := &Barrier{parties: n, pending: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until every party of the current phase has called Wait
func (b *Barrier) Wait() {
	b.mu.Lock()
	phase := b.phase
	b.pending--
	if b.pending == 0 {
		b.phase++
		b.pending = b.parties
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for phase == b.phase {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// Parties returns the number of goroutines the barrier synchronizes
func (b *Barrier) Parties() int { return b.parties }
