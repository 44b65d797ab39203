// Package lock provides the advisory per-plugin refresh lock.
//
// A lock is owned by whoever holds its token. Locks older than the reclaim
// threshold are treated as orphaned and may be taken over, which keeps a
// crashed refresh from blocking its plugin forever. Two refreshes can briefly
// overlap when a slow holder outlives the threshold; refresh writes are whole
// records, so the last one wins.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultReclaimAfter is the age past which a held lock is considered orphaned.
const DefaultReclaimAfter = 60 * time.Second

// ErrHeld is returned by TryAcquire when a live lock exists for the id.
var ErrHeld = errors.New("lock held")

// Locker hands out advisory locks keyed by plugin id.
type Locker interface {
	// TryAcquire takes the lock for id without waiting. It returns the owner
	// token on success and ErrHeld when a non-orphaned lock exists.
	TryAcquire(ctx context.Context, id string) (string, error)
	// Release drops the lock for id if token still owns it. Releasing a lock
	// that was reclaimed by someone else, or that no longer exists, is a no-op.
	Release(ctx context.Context, id, token string) error
}

// Info describes a held lock.
type Info struct {
	Token     string    `json:"token"`
	PID       int       `json:"pid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (i Info) orphaned(now time.Time, reclaimAfter time.Duration) bool {
	return now.Sub(i.CreatedAt) > reclaimAfter
}

func newToken() string {
	return uuid.NewString()
}
