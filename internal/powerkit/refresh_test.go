package powerkit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/lock"
)

func TestCoordinator_RequestSpawnsOncePerLock(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("x"))
	d := env.descriptor(t, "cpu")
	ctx := context.Background()

	assert.True(t, env.coord.Request(ctx, d))
	assert.False(t, env.coord.Request(ctx, d), "second request while the first holds the lock")

	assert.Equal(t, 1, env.spawner.count())
	assert.Equal(t, []string{"cpu"}, env.locker.Held())
}

func TestCoordinator_SpawnFailureReleasesLock(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("x"))
	env.spawner.err = errBoom
	d := env.descriptor(t, "cpu")

	assert.False(t, env.coord.Request(context.Background(), d))
	assert.Empty(t, env.locker.Held())
}

func TestCoordinator_ProcessSpawnFailureReleasesLock(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("x"))
	coord := NewCoordinator(env.orch, env.locker, ProcessSpawner{
		Exe: filepath.Join(t.TempDir(), "missing-binary"),
	}, env.metrics)
	d := env.descriptor(t, "cpu")

	assert.False(t, coord.Request(context.Background(), d))
	assert.Empty(t, env.locker.Held())
}

func TestCoordinator_RunRefresh(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(p *fakePlugin)
		wantErr error
		want    Record
	}{
		{
			name: "success writes a fresh record",
			want: record("new", false),
		},
		{
			name:    "collect failure keeps the stale entry",
			setup:   func(p *fakePlugin) { p.collectErr = errBoom },
			wantErr: ErrCollectionFailure,
			want:    record("old", true),
		},
		{
			name:    "collect panic keeps the stale entry",
			setup:   func(p *fakePlugin) { p.panicOn = "collect" },
			wantErr: ErrCollectionFailure,
			want:    record("old", true),
		},
		{
			name:    "unmet dependencies",
			setup:   func(p *fakePlugin) { p.depsMet = false },
			wantErr: ErrDependencyUnmet,
			want:    record("old", true),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			p := newFake("new")
			if tt.setup != nil {
				tt.setup(p)
			}
			env.register("cpu", p)
			env.seed(t, "cpu", record("old", true), 45*time.Second)
			d := env.descriptor(t, "cpu")

			tok, err := env.locker.TryAcquire(context.Background(), "cpu")
			require.NoError(t, err)

			err = env.coord.RunRefresh(context.Background(), d, tok)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Empty(t, env.locker.Held(), "lock is released in every outcome")
			entry, ok := env.stored(t, "cpu")
			require.True(t, ok)
			got, err := DecodeRecord(string(entry.Value))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoordinator_RunRefreshIgnoresForeignToken(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("new"))
	d := env.descriptor(t, "cpu")

	_, err := env.locker.TryAcquire(context.Background(), "cpu")
	require.NoError(t, err)

	require.NoError(t, env.coord.RunRefresh(context.Background(), d, "not-the-owner"))
	assert.Equal(t, []string{"cpu"}, env.locker.Held())
}

// writeLock places a lock file as if another process took it age ago.
func writeLock(t *testing.T, l *lock.FileLocker, id string, createdAt time.Time) {
	t.Helper()
	data, err := json.Marshal(lock.Info{Token: "other-process", PID: 1, CreatedAt: createdAt})
	require.NoError(t, err)
	path := l.Path(id)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestAccessor_StaleRequestWithExistingLockFile(t *testing.T) {
	tests := []struct {
		name      string
		lockAge   time.Duration
		wantSpawn bool
	}{
		{name: "recent lock is respected", lockAge: 10 * time.Second, wantSpawn: false},
		{name: "orphaned lock is reclaimed", lockAge: 90 * time.Second, wantSpawn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.register("cpu", newFake("new"))
			env.seed(t, "cpu", record("old", false), 40*time.Second)

			locker := lock.NewFileLocker(t.TempDir(), lock.WithFileClock(env.mock))
			writeLock(t, locker, "cpu", env.mock.Now().Add(-tt.lockAge))
			coord := NewCoordinator(env.orch, locker, env.spawner, env.metrics)
			acc := NewAccessor(env.orch, coord, env.settings, env.metrics)

			out := acc.Get(context.Background(), env.descriptor(t, "cpu"))

			assert.Equal(t, TierStale, out.Tier)
			assert.Equal(t, record("old", false), out.Record)
			if tt.wantSpawn {
				assert.Equal(t, 1, env.spawner.count())
				info, held, err := locker.Inspect("cpu")
				require.NoError(t, err)
				require.True(t, held)
				assert.NotEqual(t, "other-process", info.Token)
			} else {
				assert.Zero(t, env.spawner.count())
			}
		})
	}
}

func TestPoolSpawner_RefreshesInBackground(t *testing.T) {
	env := newTestEnv(t)
	p := newFake("new")
	env.register("cpu", p)
	env.seed(t, "cpu", record("old", false), 40*time.Second)

	ps, err := NewPoolSpawner(2)
	require.NoError(t, err)
	t.Cleanup(ps.Close)
	coord := NewCoordinator(env.orch, env.locker, ps, env.metrics)
	acc := NewAccessor(env.orch, coord, env.settings, env.metrics)

	out := acc.Get(context.Background(), env.descriptor(t, "cpu"))
	assert.Equal(t, "old", out.Record.Content)

	require.Eventually(t, func() bool {
		entry, err := env.backend.Read(context.Background(), "cpu")
		if err != nil {
			return false
		}
		rec, err := DecodeRecord(string(entry.Value))
		return err == nil && rec.Content == "new" && len(env.locker.Held()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	env.store.ResetCycle()
	out = acc.Get(context.Background(), env.descriptor(t, "cpu"))
	assert.Equal(t, TierFresh, out.Tier)
	assert.Equal(t, record("new", false), out.Record)
	assert.Equal(t, int32(1), p.collects.Load())
}

func TestPoolSpawner_Unbound(t *testing.T) {
	ps, err := NewPoolSpawner(1)
	require.NoError(t, err)
	t.Cleanup(ps.Close)

	err = ps.Spawn(&Descriptor{ID: "cpu"}, "tok")
	require.Error(t, err)
	assert.Zero(t, ps.Running())
}
