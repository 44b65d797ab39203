package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gofrs/flock"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/cache"
)

const guardRetry = 5 * time.Millisecond

// FileLocker keeps one lock file per id in a directory, so it works across
// processes. Each check-and-write runs under a short flock on a sibling guard
// file, which makes the reclaim decision atomic between competing processes.
type FileLocker struct {
	dir          string
	reclaimAfter time.Duration
	clock        clock.Clock
}

var _ Locker = (*FileLocker)(nil)

// FileOption configures a FileLocker.
type FileOption func(*FileLocker)

// WithReclaimAfter sets the orphan threshold.
func WithReclaimAfter(d time.Duration) FileOption {
	return func(l *FileLocker) {
		if d > 0 {
			l.reclaimAfter = d
		}
	}
}

// WithFileClock overrides the clock used for lock ages.
func WithFileClock(c clock.Clock) FileOption {
	return func(l *FileLocker) {
		if c != nil {
			l.clock = c
		}
	}
}

// NewFileLocker creates a locker storing lock files in dir.
func NewFileLocker(dir string, opts ...FileOption) *FileLocker {
	l := &FileLocker{
		dir:          dir,
		reclaimAfter: DefaultReclaimAfter,
		clock:        clock.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the lock file for id.
func (l *FileLocker) Path(id string) string {
	return filepath.Join(l.dir, cache.SanitizeKey(id)+".lock")
}

func (l *FileLocker) TryAcquire(ctx context.Context, id string) (string, error) {
	var token string
	err := l.guarded(ctx, id, func(path string) error {
		info, err := l.read(path)
		switch {
		case err == nil:
			if !info.orphaned(l.clock.Now(), l.reclaimAfter) {
				return fmt.Errorf("%s: %w", id, ErrHeld)
			}
		case !errors.Is(err, os.ErrNotExist):
			return err
		}

		token = newToken()
		return l.write(path, Info{Token: token, PID: os.Getpid(), CreatedAt: l.clock.Now()})
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func (l *FileLocker) Release(ctx context.Context, id, token string) error {
	return l.guarded(ctx, id, func(path string) error {
		info, err := l.read(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.Token != token {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("release %s: %w", id, err)
		}
		return nil
	})
}

// Inspect returns the current holder of id, if any.
func (l *FileLocker) Inspect(id string) (Info, bool, error) {
	info, err := l.read(l.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, false, nil
		}
		return Info{}, false, err
	}
	return info, true, nil
}

func (l *FileLocker) guarded(ctx context.Context, id string, fn func(path string) error) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	path := l.Path(id)
	guard := flock.New(path + ".guard")
	ok, err := guard.TryLockContext(ctx, guardRetry)
	if err != nil {
		return fmt.Errorf("guard %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("guard %s: %w", id, ErrHeld)
	}
	defer func() { _ = guard.Unlock() }()

	return fn(path)
}

// read loads a lock file. A file that cannot be decoded is aged by its
// modification time so that garbage left behind by a crash is still reclaimed.
func (l *FileLocker) read(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil || info.CreatedAt.IsZero() {
		st, statErr := os.Stat(path)
		if statErr != nil {
			return Info{}, statErr
		}
		return Info{CreatedAt: st.ModTime()}, nil
	}
	return info, nil
}

func (l *FileLocker) write(path string, info Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write lock: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write lock: %w", err)
	}
	return nil
}
