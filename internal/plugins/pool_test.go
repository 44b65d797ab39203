package plugins

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	p := NewWorkerPool(2)
	var running, peak atomic.Int32

	p.Each(context.Background(), 10, func(int) {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
	})

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWorkerPool_EachVisitsAll(t *testing.T) {
	p := NewWorkerPool(3)
	seen := make([]atomic.Bool, 7)

	p.Each(context.Background(), len(seen), func(i int) { seen[i].Store(true) })

	for i := range seen {
		assert.True(t, seen[i].Load(), "index %d", i)
	}
}

func TestWorkerPool_RunContextCancelled(t *testing.T) {
	p := NewWorkerPool(1)
	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.RunContext(context.Background(), func() {
			close(started)
			<-block
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.RunContext(ctx, func() { t.Fatal("must not run") })
	require.ErrorIs(t, err, context.Canceled)
	close(block)
}

func TestNewWorkerPool_DefaultSize(t *testing.T) {
	assert.Equal(t, 4, NewWorkerPool(0).Size())
}
