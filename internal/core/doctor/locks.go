package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookgo/clock"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/cache"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/lock"
)

// LocksCheck reports refresh locks left in the lock directory. Locks older
// than the reclaim threshold belong to refreshes that died; they are
// reclaimed automatically but can also be removed with Fix.
type LocksCheck struct {
	locker       *lock.FileLocker
	dir          string
	reclaimAfter time.Duration
	clock        clock.Clock
}

// NewLocksCheck creates a lock check over dir.
func NewLocksCheck(dir string, reclaimAfter time.Duration, c clock.Clock) *LocksCheck {
	if c == nil {
		c = clock.New()
	}
	return &LocksCheck{
		locker:       lock.NewFileLocker(dir, lock.WithReclaimAfter(reclaimAfter), lock.WithFileClock(c)),
		dir:          dir,
		reclaimAfter: reclaimAfter,
		clock:        c,
	}
}

func (c *LocksCheck) Name() string {
	return "Refresh Locks"
}

func (c *LocksCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	ids, err := c.ids()
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  c.dir,
			Status: StatusFail,
			Detail: fmt.Sprintf("cannot list locks: %v", err),
		})
		return result
	}
	if len(ids) == 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "locks",
			Status: StatusPass,
			Detail: "no refresh in progress",
		})
		return result
	}

	now := c.clock.Now()
	for _, id := range ids {
		info, held, err := c.locker.Inspect(id)
		if err != nil || !held {
			continue
		}
		age := now.Sub(info.CreatedAt)
		since := humanize.RelTime(info.CreatedAt, now, "ago", "from now")
		if age > c.reclaimAfter {
			result.Items = append(result.Items, CheckItem{
				Label:   id,
				Status:  StatusWarn,
				Detail:  "orphaned lock taken " + since,
				Fixable: true,
			})
			continue
		}
		result.Items = append(result.Items, CheckItem{
			Label:  id,
			Status: StatusPass,
			Detail: "refresh running, started " + since,
		})
	}

	return result
}

// Fix reclaims and removes orphaned locks.
func (c *LocksCheck) Fix(ctx context.Context) (int, error) {
	ids, err := c.ids()
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, id := range ids {
		token, err := c.locker.TryAcquire(ctx, id)
		if errors.Is(err, lock.ErrHeld) {
			continue
		}
		if err != nil {
			return fixed, err
		}
		if err := c.locker.Release(ctx, id, token); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

// ids lists plugin ids with a lock file.
func (c *LocksCheck) ids() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".lock" {
			continue
		}
		id, err := cache.UnsanitizeKey(strings.TrimSuffix(name, ".lock"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
