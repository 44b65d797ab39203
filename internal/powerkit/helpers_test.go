package powerkit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/cache"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/lock"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

var errBoom = errors.New("source unavailable")

// fakePlugin implements the full contract plus every optional interface.
type fakePlugin struct {
	mu          sync.Mutex
	contentType plugins.ContentType
	content     string
	icon        string
	state       plugins.State
	health      plugins.Health
	presence    plugins.Presence
	ttl         time.Duration

	depsMet    bool
	active     bool
	collectErr error
	panicOn    string

	collects atomic.Int32
	declared *plugins.Options
}

func newFake(content string) *fakePlugin {
	return &fakePlugin{
		contentType: plugins.ContentDynamic,
		content:     content,
		icon:        "I",
		state:       plugins.StateActive,
		health:      plugins.HealthGood,
		presence:    plugins.PresenceAlways,
		depsMet:     true,
		active:      true,
	}
}

func (f *fakePlugin) maybePanic(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn == op {
		panic(op + " exploded")
	}
}

func (f *fakePlugin) set(fn func(f *fakePlugin)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakePlugin) ContentType() plugins.ContentType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contentType
}

func (f *fakePlugin) Presence() plugins.Presence {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presence
}

func (f *fakePlugin) State() plugins.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakePlugin) Health() plugins.Health {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health
}

func (f *fakePlugin) Icon() string { return f.icon }

func (f *fakePlugin) Render() string {
	f.maybePanic("render")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content
}

func (f *fakePlugin) Collect(context.Context) error {
	f.collects.Add(1)
	f.maybePanic("collect")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collectErr
}

func (f *fakePlugin) CheckDependencies(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.depsMet
}

func (f *fakePlugin) ShouldBeActive(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakePlugin) DeclareOptions(opts *plugins.Options) {
	opts.Declare("format", "short", "")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = opts
}

func (f *fakePlugin) DefaultTTL() time.Duration { return f.ttl }

// renderOnly lacks Collect and State.
type renderOnly struct{}

func (renderOnly) ContentType() plugins.ContentType { return plugins.ContentStatic }
func (renderOnly) Presence() plugins.Presence       { return plugins.PresenceAlways }
func (renderOnly) Render() string                   { return "x" }

// countingSpawner records spawns and never runs anything.
type countingSpawner struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *countingSpawner) Spawn(d *Descriptor, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, d.ID+":"+token)
	return nil
}

func (s *countingSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type staticTTLs map[string]time.Duration

func (s staticTTLs) TTLFor(id string) (time.Duration, bool) {
	d, ok := s[id]
	return d, ok
}

type testEnv struct {
	mock     *clock.Mock
	backend  *cache.MemoryBackend
	store    *cache.Store
	registry *Registry
	orch     *Orchestrator
	locker   *lock.MemLocker
	spawner  *countingSpawner
	coord    *Coordinator
	settings Settings
	metrics  *Metrics
	reg      *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))

	backend := cache.NewMemoryBackend()
	store := cache.New(backend, cache.WithClock(mock))
	registry := NewRegistry(&executil.RecordingExecutor{})
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	orch := NewOrchestrator(registry, store,
		WithMetrics(metrics),
		WithPluginOptions(map[string]map[string]any{"cpu": {"format": "long"}}),
	)
	locker := lock.NewMemLocker(lock.DefaultReclaimAfter, mock)
	spawner := &countingSpawner{}

	settings := DefaultSettings()
	settings.DefaultTTL = 30 * time.Second

	return &testEnv{
		mock:     mock,
		backend:  backend,
		store:    store,
		registry: registry,
		orch:     orch,
		locker:   locker,
		spawner:  spawner,
		coord:    NewCoordinator(orch, locker, spawner, metrics),
		settings: settings,
		metrics:  metrics,
		reg:      reg,
	}
}

func (e *testEnv) register(id string, p any) {
	e.registry.Register(id, func() any { return p })
}

func (e *testEnv) accessor() *Accessor {
	return NewAccessor(e.orch, e.coord, e.settings, e.metrics)
}

func (e *testEnv) descriptor(t *testing.T, id string) *Descriptor {
	t.Helper()
	descs, errs := e.registry.Discover(id)
	require.Empty(t, errs)
	require.Len(t, descs, 1)
	return descs[0]
}

// seed stores rec as if it had been written age ago.
func (e *testEnv) seed(t *testing.T, id string, rec Record, age time.Duration) {
	t.Helper()
	require.NoError(t, e.backend.Write(context.Background(), cache.Entry{
		Key:       id,
		Value:     []byte(rec.Encode()),
		WriteTime: e.mock.Now().Add(-age),
	}))
	e.store.ResetCycle()
}

// stored returns the raw backend entry for id.
func (e *testEnv) stored(t *testing.T, id string) (cache.Entry, bool) {
	t.Helper()
	entry, err := e.backend.Read(context.Background(), id)
	if errors.Is(err, cache.ErrNotFound) {
		return cache.Entry{}, false
	}
	require.NoError(t, err)
	return entry, true
}

func record(content string, stale bool) Record {
	return Record{Icon: "I", Content: content, State: plugins.StateActive, Health: plugins.HealthGood, Stale: stale}
}
