package powerkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

func (e *testEnv) pipeline(list string) *Pipeline {
	return NewPipeline(list, e.registry, e.orch, e.coord, e.settings, e.metrics)
}

func TestPipeline_RenderAllKeepsListOrder(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("12%"))
	env.register("memory", newFake("3.1G"))
	env.register("broken", renderOnly{})

	outs := env.pipeline(`memory, nope, group(cpu, broken), external("X"|"hi"|"60")`).
		RenderAll(context.Background(), plugins.NewWorkerPool(2))

	require.Len(t, outs, 4)
	ids := make([]string, len(outs))
	for i, o := range outs {
		ids[i] = o.ID
	}
	assert.Equal(t, []string{"memory", "cpu", "broken", "external_1"}, ids)

	assert.Equal(t, "3.1G", outs[0].Record.Content)
	assert.Equal(t, "12%", outs[1].Record.Content)
	assert.True(t, outs[2].Hidden)
	assert.Equal(t, TierExcluded, outs[2].Tier)
	assert.Equal(t, Record{Icon: "X", Content: "hi", State: plugins.StateActive, Health: plugins.HealthOK}, outs[3].Record)
}

func TestPipeline_RenderAllServesCacheOnSecondCycle(t *testing.T) {
	env := newTestEnv(t)
	p := newFake("12%")
	env.register("cpu", p)
	pipe := env.pipeline("cpu")
	pool := plugins.NewWorkerPool(1)

	first := pipe.RenderAll(context.Background(), pool)
	env.mock.Add(10 * time.Second)
	second := pipe.RenderAll(context.Background(), pool)

	assert.Equal(t, TierMissing, first[0].Tier)
	assert.Equal(t, TierFresh, second[0].Tier)
	assert.Equal(t, first[0].Record, second[0].Record)
	assert.Equal(t, int32(1), p.collects.Load())
}

func TestPipeline_RenderAllSeesWritesFromPreviousCycle(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("12%"))
	pipe := env.pipeline("cpu")
	pool := plugins.NewWorkerPool(1)

	pipe.RenderAll(context.Background(), pool)
	env.seed(t, "cpu", record("seeded", false), 0)

	outs := pipe.RenderAll(context.Background(), pool)
	assert.Equal(t, "seeded", outs[0].Record.Content)
}

func TestPipeline_Render(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("12%"))
	pipe := env.pipeline("cpu")

	out, err := pipe.Render(context.Background(), "cpu")
	require.NoError(t, err)
	assert.Equal(t, record("12%", false), out.Record)

	_, err = pipe.Render(context.Background(), "memory")
	require.ErrorIs(t, err, ErrDiscoveryMiss)
}

func TestPipeline_LazyLoadingDisabledNeverSpawns(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("new"))
	env.settings.LazyLoading = false
	env.seed(t, "cpu", record("old", false), 40*time.Second)

	out, err := env.pipeline("cpu").Render(context.Background(), "cpu")

	require.NoError(t, err)
	assert.Equal(t, "new", out.Record.Content)
	assert.Zero(t, env.spawner.count())
}

func TestPipeline_Refresh(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("new"))
	env.seed(t, "cpu", record("old", true), 40*time.Second)
	pipe := env.pipeline("cpu")

	tok, err := env.locker.TryAcquire(context.Background(), "cpu")
	require.NoError(t, err)

	require.NoError(t, pipe.Refresh(context.Background(), "cpu", tok))

	assert.Empty(t, env.locker.Held())
	entry, ok := env.stored(t, "cpu")
	require.True(t, ok)
	assert.Equal(t, record("new", false).Encode(), string(entry.Value))

	require.ErrorIs(t, pipe.Refresh(context.Background(), "memory", tok), ErrDiscoveryMiss)
}

func TestPipeline_RefreshUnlistedIDReleasesLock(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("new"))
	env.register("memory", newFake("mem"))

	// The list no longer names cpu by the time the refresh starts.
	tok, err := env.locker.TryAcquire(context.Background(), "cpu")
	require.NoError(t, err)
	require.Equal(t, []string{"cpu"}, env.locker.Held())

	err = env.pipeline("memory").Refresh(context.Background(), "cpu", tok)
	require.ErrorIs(t, err, ErrDiscoveryMiss)

	assert.Empty(t, env.locker.Held())
	_, ok := env.stored(t, "cpu")
	assert.False(t, ok)
}

func TestPipeline_RefreshUnlistedIDKeepsOtherOwnersLock(t *testing.T) {
	env := newTestEnv(t)
	env.register("memory", newFake("mem"))

	_, err := env.locker.TryAcquire(context.Background(), "cpu")
	require.NoError(t, err)

	err = env.pipeline("memory").Refresh(context.Background(), "cpu", "someone-else")
	require.ErrorIs(t, err, ErrDiscoveryMiss)

	assert.Equal(t, []string{"cpu"}, env.locker.Held())
}

func TestPipeline_RefreshWithoutCoordinator(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("new"))
	pipe := NewPipeline("cpu", env.registry, env.orch, nil, env.settings, nil)

	require.Error(t, pipe.Refresh(context.Background(), "cpu", "tok"))
}

func TestPipeline_Inspect(t *testing.T) {
	env := newTestEnv(t)
	env.register("cpu", newFake("x"))
	env.register("broken", renderOnly{})
	deps := newFake("x")
	deps.depsMet = false
	env.register("git", deps)

	descs, errs := env.pipeline("cpu,broken,git,nope").Inspect(context.Background())

	require.Len(t, descs, 3)
	assert.Equal(t, StateInitialized, descs[0].State)
	assert.Equal(t, StateInvalid, descs[1].State)
	assert.Equal(t, StateInitFailed, descs[2].State)

	require.Len(t, errs, 3)
	assert.ErrorIs(t, errs[0], ErrDiscoveryMiss)
	assert.ErrorIs(t, errs[1], ErrContractViolation)
	assert.ErrorIs(t, errs[2], ErrDependencyUnmet)

	_, ok := env.stored(t, "cpu")
	assert.False(t, ok, "inspect never collects")
}

func TestPipeline_CollectIgnoresFreshEntry(t *testing.T) {
	env := newTestEnv(t)
	p := newFake("new")
	env.register("cpu", p)
	env.seed(t, "cpu", record("old", false), 0)

	rec, err := env.pipeline("cpu").Collect(context.Background(), "cpu")

	require.NoError(t, err)
	assert.Equal(t, record("new", false), rec)
	assert.Equal(t, int32(1), p.collects.Load())

	_, err = env.pipeline("cpu").Collect(context.Background(), "memory")
	require.ErrorIs(t, err, ErrDiscoveryMiss)
}
