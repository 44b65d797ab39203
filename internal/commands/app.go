package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/facebookgo/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/cache"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/config"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/lock"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/powerkit"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

// App holds the components shared by every command. It is populated in the
// root command's Before hook; commands hold a pointer to it from startup.
type App struct {
	Config   *config.Config
	Exec     executil.Executor
	Clock    clock.Clock
	Store    *cache.Store
	Registry *powerkit.Registry
	Orch     *powerkit.Orchestrator
	Metrics  *powerkit.Metrics
	Prom     *prometheus.Registry

	baseArgs []string
	closers  []func() error
}

// NewApp opens the configured cache backend and builds the plugin registry.
// baseArgs are passed to spawned refresh processes.
func NewApp(cfg *config.Config, exec executil.Executor, c clock.Clock, baseArgs []string) (*App, error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	prom := prometheus.NewRegistry()
	prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := powerkit.NewMetrics(prom)

	store := cache.New(backend, cache.WithClock(c))
	registry := powerkit.NewRegistry(exec)
	powerkit.RegisterBuiltins(registry, exec, c)

	return &App{
		Config:   cfg,
		Exec:     exec,
		Clock:    c,
		Store:    store,
		Registry: registry,
		Orch: powerkit.NewOrchestrator(registry, store,
			powerkit.WithPluginOptions(cfg.PluginOptions),
			powerkit.WithMetrics(metrics),
		),
		Metrics:  metrics,
		Prom:     prom,
		baseArgs: baseArgs,
		closers:  []func() error{store.Close},
	}, nil
}

func openBackend(cfg *config.Config) (cache.Backend, error) {
	switch cfg.Cache.Backend {
	case config.BackendFile:
		return cache.NewFileBackend(cfg.Cache.Dir), nil
	case config.BackendLevelDB:
		b, err := cache.OpenLevelBackend(filepath.Join(cfg.Cache.Dir, "powerkit.ldb"))
		if err != nil {
			return nil, fmt.Errorf("open leveldb cache: %w", err)
		}
		return b, nil
	case config.BackendRedis:
		return cache.NewRedisBackend(cfg.Cache.RedisAddr, cfg.Cache.Namespace), nil
	case config.BackendMemory:
		return cache.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// Settings returns the caching settings derived from the config.
func (a *App) Settings() powerkit.Settings {
	return powerkit.Settings{
		LazyLoading:     a.Config.LazyLoading,
		StaleMultiplier: a.Config.StaleMultiplier,
		DefaultTTL:      a.Config.DefaultTTLDuration(),
		FallbackCeiling: a.Config.FallbackCeiling,
		TTLs:            a.Config,
	}
}

// Coordinator builds a refresh coordinator for mode. Process mode uses lock
// files shared between processes; pool mode keeps locks in memory and runs
// refreshes on an in-process pool.
func (a *App) Coordinator(mode string) (*powerkit.Coordinator, error) {
	switch mode {
	case config.RefreshProcess:
		spawner := powerkit.ProcessSpawner{BaseArgs: a.baseArgs}
		return powerkit.NewCoordinator(a.Orch, a.FileLocker(), spawner, a.Metrics), nil

	case config.RefreshPool:
		spawner, err := powerkit.NewPoolSpawner(a.Config.Refresh.Workers)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { spawner.Close(); return nil })
		locker := lock.NewMemLocker(a.Config.Lock.ReclaimAfter, a.Clock)
		return powerkit.NewCoordinator(a.Orch, locker, spawner, a.Metrics), nil

	default:
		return nil, fmt.Errorf("unknown refresh mode %q", mode)
	}
}

// FileLocker returns the lock-file locker shared by every powerkit process.
func (a *App) FileLocker() *lock.FileLocker {
	return lock.NewFileLocker(a.Config.Lock.Dir,
		lock.WithReclaimAfter(a.Config.Lock.ReclaimAfter),
		lock.WithFileClock(a.Clock),
	)
}

// Pipeline builds the pipeline for the configured plugin list using the
// configured refresh mode.
func (a *App) Pipeline() (*powerkit.Pipeline, error) {
	return a.PipelineWith(a.Config.Refresh.Mode)
}

// PipelineWith builds the pipeline with an explicit refresh mode.
func (a *App) PipelineWith(mode string) (*powerkit.Pipeline, error) {
	coord, err := a.Coordinator(mode)
	if err != nil {
		return nil, err
	}
	return powerkit.NewPipeline(a.Config.Plugins, a.Registry, a.Orch, coord, a.Settings(), a.Metrics), nil
}

// Close releases the cache backend and any refresh pool.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

var _ powerkit.TTLSource = (*config.Config)(nil)
