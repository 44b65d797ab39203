package powerkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/lock"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/logging"
)

// Spawner starts a background refresh for d owning token and returns without
// waiting for it.
type Spawner interface {
	Spawn(d *Descriptor, token string) error
}

// RefreshFunc runs one background refresh.
type RefreshFunc func(ctx context.Context, d *Descriptor, token string) error

// binder is implemented by spawners that run refreshes in process.
type binder interface {
	Bind(run RefreshFunc)
}

// Coordinator starts at most one background refresh per plugin id at a
// time, using an advisory lock.
type Coordinator struct {
	orch    *Orchestrator
	locker  lock.Locker
	spawner Spawner
	metrics *Metrics
	log     zerolog.Logger
}

// NewCoordinator creates a coordinator. In-process spawners are bound to
// the coordinator's RunRefresh.
func NewCoordinator(orch *Orchestrator, locker lock.Locker, spawner Spawner, metrics *Metrics) *Coordinator {
	c := &Coordinator{
		orch:    orch,
		locker:  locker,
		spawner: spawner,
		metrics: metrics,
		log:     logging.Component("refresh"),
	}
	if b, ok := spawner.(binder); ok {
		b.Bind(c.RunRefresh)
	}
	return c
}

// Request asks for a background refresh of d. It reports whether one was
// started; a refresh already in flight makes this a no-op.
func (c *Coordinator) Request(ctx context.Context, d *Descriptor) bool {
	token, err := c.locker.TryAcquire(ctx, d.ID)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			err = fmt.Errorf("%s: %w: %w", d.ID, ErrLockContention, err)
			c.metrics.observeSpawn(spawnContended)
		} else {
			c.metrics.observeSpawn(spawnFailed)
		}
		c.log.Debug().Ctx(ctx).Err(err).Msg("refresh not started")
		return false
	}

	if err := c.spawner.Spawn(d, token); err != nil {
		c.metrics.observeSpawn(spawnFailed)
		c.log.Warn().Ctx(ctx).Err(err).Msg("refresh spawn failed")
		c.Release(d.ID, token)
		return false
	}

	c.metrics.observeSpawn(spawnStarted)
	c.log.Debug().Ctx(ctx).Msg("background refresh started")
	return true
}

// RunRefresh is the body of a background refresh. It runs the full lifecycle
// for d, which writes a fresh record on success, and always releases the
// lock identified by token, whether the refresh succeeds, fails or panics.
func (c *Coordinator) RunRefresh(ctx context.Context, d *Descriptor, token string) (err error) {
	defer c.Release(d.ID, token)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: refresh panic: %v", d.ID, r)
		}
	}()

	ctx = logging.WithPluginID(ctx, d.ID)
	if _, err := c.orch.Run(ctx, d); err != nil {
		c.log.Debug().Ctx(ctx).Err(err).Msg("background refresh failed")
		return err
	}
	return nil
}

// Release gives up the lock on id held under token. A token that no longer
// owns the lock is ignored.
func (c *Coordinator) Release(id, token string) {
	if err := c.locker.Release(context.Background(), id, token); err != nil {
		c.log.Warn().Err(err).Str("plugin", id).Msg("failed to release refresh lock")
	}
}
