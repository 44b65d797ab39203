package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookgo/clock"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// MemLocker is an in-process lock table for a single long-running process.
type MemLocker struct {
	held         cmap.ConcurrentMap[string, Info]
	reclaimAfter time.Duration
	clock        clock.Clock
}

var _ Locker = (*MemLocker)(nil)

// NewMemLocker creates an empty lock table. A zero reclaimAfter uses
// DefaultReclaimAfter; a nil clock uses the wall clock.
func NewMemLocker(reclaimAfter time.Duration, c clock.Clock) *MemLocker {
	if reclaimAfter <= 0 {
		reclaimAfter = DefaultReclaimAfter
	}
	if c == nil {
		c = clock.New()
	}
	return &MemLocker{
		held:         cmap.New[Info](),
		reclaimAfter: reclaimAfter,
		clock:        c,
	}
}

func (l *MemLocker) TryAcquire(_ context.Context, id string) (string, error) {
	now := l.clock.Now()
	want := Info{Token: newToken(), CreatedAt: now}

	got := l.held.Upsert(id, want, func(exist bool, current, proposed Info) Info {
		if exist && !current.orphaned(now, l.reclaimAfter) {
			return current
		}
		return proposed
	})
	if got.Token != want.Token {
		return "", fmt.Errorf("%s: %w", id, ErrHeld)
	}
	return want.Token, nil
}

func (l *MemLocker) Release(_ context.Context, id, token string) error {
	l.held.RemoveCb(id, func(_ string, current Info, exists bool) bool {
		return exists && current.Token == token
	})
	return nil
}

// Held reports the ids with a live lock.
func (l *MemLocker) Held() []string {
	now := l.clock.Now()
	var ids []string
	for item := range l.held.IterBuffered() {
		if !item.Val.orphaned(now, l.reclaimAfter) {
			ids = append(ids, item.Key)
		}
	}
	return ids
}
