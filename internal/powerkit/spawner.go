package powerkit

import (
	"context"
	"fmt"
	"os"

	"github.com/panjf2000/ants/v2"

	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

// ProcessSpawner re-executes the binary as a detached refresh process, so a
// refresh outlives the short-lived render call that requested it.
type ProcessSpawner struct {
	// Exe is the binary to run. Empty means the running executable.
	Exe string
	// BaseArgs are passed before the refresh subcommand, typically global
	// flags such as --config.
	BaseArgs []string
	// Env is the child environment. Nil inherits the current environment.
	Env []string
}

func (s ProcessSpawner) Spawn(d *Descriptor, token string) error {
	exe := s.Exe
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
	}
	env := s.Env
	if env == nil {
		env = os.Environ()
	}

	args := append(append([]string{}, s.BaseArgs...), "refresh", "--token", token, d.ID)
	_, err := executil.StartDetached(exe, args, env)
	return err
}

// PoolSpawner runs refreshes on an in-process goroutine pool. Submission
// never blocks: a full pool fails the spawn and the lock is released so a
// later cycle can try again.
type PoolSpawner struct {
	pool *ants.Pool
	run  RefreshFunc
}

// NewPoolSpawner creates a pool with size workers.
func NewPoolSpawner(size int) (*PoolSpawner, error) {
	if size <= 0 {
		size = 4
	}
	pool, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create refresh pool: %w", err)
	}
	return &PoolSpawner{pool: pool}, nil
}

// Bind sets the refresh body.
func (s *PoolSpawner) Bind(run RefreshFunc) {
	s.run = run
}

func (s *PoolSpawner) Spawn(d *Descriptor, token string) error {
	if s.run == nil {
		return fmt.Errorf("pool spawner not bound")
	}
	fresh := d.Fresh()
	return s.pool.Submit(func() {
		// Detached from the requester: the refresh runs to completion even
		// if the render that asked for it has returned.
		_ = s.run(context.Background(), fresh, token)
	})
}

// Running returns the number of refreshes in flight.
func (s *PoolSpawner) Running() int {
	return s.pool.Running()
}

// Close releases the pool. Running refreshes finish; later spawns fail.
func (s *PoolSpawner) Close() {
	s.pool.Release()
}
