// Package barrier provides a single-generation rendezvous point for a fixed
// number of goroutines.
package barrier

import (
	"context"
	"errors"
	"sync"
)

// ErrBroken is returned by Await when the barrier was broken before all
// parties arrived.
var ErrBroken = errors.New("barrier: broken")

// Barrier releases all waiting goroutines once Parties of them have called
// Await. It is not reusable.
type Barrier struct {
	parties int

	mu      sync.Mutex
	arrived int
	broken  bool
	release chan struct{}
}

// New creates a barrier for n parties. n < 1 is treated as 1.
func New(n int) *Barrier {
	if n < 1 {
		n = 1
	}
	return &Barrier{
		parties: n,
		release: make(chan struct{}),
	}
}

// Parties returns the number of goroutines required to trip the barrier.
func (b *Barrier) Parties() int {
	return b.parties
}

// Waiting returns how many goroutines are currently blocked in Await.
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.arrived >= b.parties {
		return 0
	}
	return b.arrived
}

// Await blocks until all parties have arrived, the barrier is broken, or ctx
// is done. A ctx cancellation breaks the barrier for everyone.
func (b *Barrier) Await(ctx context.Context) error {
	b.mu.Lock()
	if b.broken {
		b.mu.Unlock()
		return ErrBroken
	}
	b.arrived++
	if b.arrived == b.parties {
		close(b.release)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-b.release:
		if b.IsBroken() {
			return ErrBroken
		}
		return nil
	case <-ctx.Done():
		b.Break()
		return ErrBroken
	}
}

// Break marks the barrier broken and wakes every waiter. Breaking a barrier
// that already tripped has no effect.
func (b *Barrier) Break() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broken || b.arrived >= b.parties {
		return
	}
	b.broken = true
	close(b.release)
}

// IsBroken reports whether Break has taken effect.
func (b *Barrier) IsBroken() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.broken
}
