package plugins

import (
	"context"
	"sync"
)

// WorkerPool limits how many plugins render at once. Collection often shells
// out, so an unbounded fan-out over a long plugin list can fork dozens of
// processes per status line refresh.
type WorkerPool struct {
	sem chan struct{}
}

// NewWorkerPool creates a pool with size slots. Non-positive sizes use 4.
func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 4
	}
	return &WorkerPool{
		sem: make(chan struct{}, size),
	}
}

// Size returns the number of slots.
func (p *WorkerPool) Size() int {
	return cap(p.sem)
}

// RunContext executes fn with a slot held. It returns ctx.Err() if the
// context ends while waiting for a slot.
func (p *WorkerPool) RunContext(ctx context.Context, fn func()) error {
	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
		fn()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Each calls fn(i) for i in [0, n) on the pool and waits for all calls.
// Indexes skipped because ctx ended are not called.
func (p *WorkerPool) Each(ctx context.Context, n int, fn func(i int)) {
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.RunContext(ctx, func() { fn(i) })
		}()
	}
	wg.Wait()
}
