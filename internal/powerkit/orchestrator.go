package powerkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/cache"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/logging"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

// Orchestrator drives descriptors through validate, initialize, collect and
// resolve. Every plugin fault stops at the descriptor: the descriptor's state
// records it and the caller gets a classified error, nothing more.
type Orchestrator struct {
	registry *Registry
	store    *cache.Store
	options  map[string]map[string]any
	metrics  *Metrics
	log      zerolog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithPluginOptions supplies configured option values keyed by plugin id.
func WithPluginOptions(opts map[string]map[string]any) OrchestratorOption {
	return func(o *Orchestrator) { o.options = opts }
}

// WithMetrics records lifecycle outcomes in m.
func WithMetrics(m *Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates an orchestrator writing collected records to store.
func NewOrchestrator(registry *Registry, store *cache.Store, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		store:    store,
		log:      logging.Component("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Store returns the cache the orchestrator writes to.
func (o *Orchestrator) Store() *cache.Store {
	return o.store
}

// Validate loads the implementation and checks the mandatory operations.
// A descriptor that is already past validation is left alone.
func (o *Orchestrator) Validate(ctx context.Context, d *Descriptor) error {
	switch d.State {
	case StateDiscovered:
	case StateInvalid:
		return fmt.Errorf("%s: %w", d.ID, ErrContractViolation)
	default:
		return nil
	}

	var impl any
	err := guard(func() error {
		var err error
		impl, err = o.registry.load(d)
		return err
	})
	if err != nil {
		d.State = StateInvalid
		o.log.Warn().Ctx(ctx).Err(err).Str("plugin", d.ID).Msg("plugin failed to load")
		return fmt.Errorf("%s: %w: %w", d.ID, ErrContractViolation, err)
	}

	if missing := MissingOperations(impl); len(missing) > 0 {
		d.State = StateInvalid
		o.log.Warn().Ctx(ctx).
			Str("plugin", d.ID).
			Strs("missing", missing).
			Msg("plugin does not implement the contract")
		return fmt.Errorf("%s: missing %s: %w", d.ID, strings.Join(missing, ", "), ErrContractViolation)
	}

	d.impl = impl
	d.plugin = impl.(plugins.Plugin)
	d.State = StateValidated
	return nil
}

// Initialize runs the optional dependency check and option declaration.
// An unmet dependency is routine and only logged at debug.
func (o *Orchestrator) Initialize(ctx context.Context, d *Descriptor) error {
	switch d.State {
	case StateValidated:
	case StateInitialized, StateResolved, StateCollectFailed:
		return nil
	case StateInitFailed:
		return fmt.Errorf("%s: %w", d.ID, ErrDependencyUnmet)
	default:
		return fmt.Errorf("%s: initialize from %s: %w", d.ID, d.State, ErrLifecycle)
	}

	if dc, ok := d.impl.(plugins.DependencyChecker); ok {
		var met bool
		err := guard(func() error {
			met = dc.CheckDependencies(ctx)
			return nil
		})
		if err != nil || !met {
			d.State = StateInitFailed
			o.log.Debug().Ctx(ctx).Err(err).Str("plugin", d.ID).Msg("plugin dependencies unmet")
			return fmt.Errorf("%s: %w", d.ID, ErrDependencyUnmet)
		}
	}

	d.opts = plugins.NewOptions(o.options[d.ID])
	if od, ok := d.impl.(plugins.OptionDeclarer); ok {
		if err := guard(func() error { od.DeclareOptions(d.opts); return nil }); err != nil {
			d.State = StateInitFailed
			o.log.Debug().Ctx(ctx).Err(err).Str("plugin", d.ID).Msg("plugin option declaration failed")
			return fmt.Errorf("%s: %w: %w", d.ID, ErrDependencyUnmet, err)
		}
		if extra := d.opts.Undeclared(); len(extra) > 0 {
			o.log.Warn().Ctx(ctx).Str("plugin", d.ID).Strs("options", extra).Msg("ignoring unknown plugin options")
		}
	}

	d.State = StateInitialized
	return nil
}

// Collect gathers data, resolves the record and writes it to the cache with
// the stale flag cleared. On failure the cache is left untouched.
func (o *Orchestrator) Collect(ctx context.Context, d *Descriptor) (Record, error) {
	switch d.State {
	case StateInitialized, StateResolved, StateCollectFailed:
	default:
		return Record{}, fmt.Errorf("%s: collect from %s: %w", d.ID, d.State, ErrLifecycle)
	}

	start := time.Now()
	err := guard(func() error { return d.plugin.Collect(ctx) })
	o.metrics.observeCollect(d.ID, time.Since(start), err)
	if err != nil {
		d.State = StateCollectFailed
		o.log.Debug().Ctx(ctx).Err(err).Str("plugin", d.ID).Msg("collection failed")
		return Record{}, fmt.Errorf("%s: %w: %w", d.ID, ErrCollectionFailure, err)
	}

	d.State = StateInitialized
	rec, err := o.Resolve(ctx, d)
	if err != nil {
		d.State = StateCollectFailed
		return Record{}, err
	}
	rec.Stale = false

	if err := o.store.Set(ctx, d.ID, []byte(rec.Encode())); err != nil {
		o.log.Warn().Ctx(ctx).Err(err).Str("plugin", d.ID).Msg("cache write failed")
	}
	return rec, nil
}

// Resolve reads the plugin's accessors into a Record. Without an intervening
// Collect it returns the same record every time.
func (o *Orchestrator) Resolve(ctx context.Context, d *Descriptor) (Record, error) {
	switch d.State {
	case StateInitialized, StateResolved:
	default:
		return Record{}, fmt.Errorf("%s: resolve from %s: %w", d.ID, d.State, ErrLifecycle)
	}

	var (
		rec Record
		ct  plugins.ContentType
	)
	err := guard(func() error {
		ct = d.plugin.ContentType()
		rec = Record{
			Content: d.plugin.Render(),
			State:   d.plugin.State(),
			Health:  plugins.HealthOK,
		}
		if h, ok := d.impl.(plugins.HealthReporter); ok {
			rec.Health = h.Health()
		}
		if ip, ok := d.impl.(plugins.IconProvider); ok {
			rec.Icon = ip.Icon()
		}
		return nil
	})
	if err != nil {
		o.log.Debug().Ctx(ctx).Err(err).Str("plugin", d.ID).Msg("resolve failed")
		return Record{}, fmt.Errorf("%s: %w: %w", d.ID, ErrCollectionFailure, err)
	}

	if _, err := plugins.ParseContentType(string(ct)); err != nil {
		return Record{}, fmt.Errorf("%s: %w: %w", d.ID, ErrContractViolation, err)
	}
	if _, err := plugins.ParseState(string(rec.State)); err != nil {
		return Record{}, fmt.Errorf("%s: %w: %w", d.ID, ErrContractViolation, err)
	}
	if _, err := plugins.ParseHealth(string(rec.Health)); err != nil {
		rec.Health = plugins.HealthOK
	}

	d.contentType = ct
	d.State = StateResolved
	return rec, nil
}

// Prepare validates and initializes d.
func (o *Orchestrator) Prepare(ctx context.Context, d *Descriptor) error {
	if err := o.Validate(ctx, d); err != nil {
		return err
	}
	return o.Initialize(ctx, d)
}

// Run takes d through the whole lifecycle.
func (o *Orchestrator) Run(ctx context.Context, d *Descriptor) (Record, error) {
	if err := o.Prepare(ctx, d); err != nil {
		return Record{}, err
	}
	return o.Collect(ctx, d)
}

// Presence asks the implementation for its presence, defaulting to always
// if the call panics.
func (o *Orchestrator) Presence(d *Descriptor) plugins.Presence {
	p := plugins.PresenceAlways
	_ = guard(func() error { p = d.plugin.Presence(); return nil })
	return p
}

// Active runs the optional liveness probe. Plugins without one are assumed
// active so the stored state decides.
func (o *Orchestrator) Active(ctx context.Context, d *Descriptor) bool {
	ac, ok := d.impl.(plugins.ActivityChecker)
	if !ok {
		return true
	}
	active := false
	_ = guard(func() error { active = ac.ShouldBeActive(ctx); return nil })
	return active
}

// guard runs fn, converting a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin panic: %v", r)
		}
	}()
	return fn()
}
