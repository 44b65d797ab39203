package powerkit

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/logging"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

// Tier names the branch of the render decision that produced an output.
type Tier string

const (
	TierExcluded Tier = "excluded"
	TierFresh    Tier = "fresh"
	TierStale    Tier = "stale"
	TierVeryOld  Tier = "very_old"
	TierMissing  Tier = "missing"
)

// Output is the result of one render decision.
type Output struct {
	ID     string
	Record Record
	Hidden bool
	Tier   Tier
}

// String returns the wire form: an encoded record, or the Hidden sentinel.
func (o Output) String() string {
	if o.Hidden {
		return Hidden
	}
	return o.Record.Encode()
}

// OutputView is the JSON form of an Output.
type OutputView struct {
	ID      string `json:"id"`
	Hidden  bool   `json:"hidden"`
	Tier    string `json:"tier"`
	Icon    string `json:"icon,omitempty"`
	Content string `json:"content,omitempty"`
	State   string `json:"state,omitempty"`
	Health  string `json:"health,omitempty"`
	Stale   bool   `json:"stale,omitempty"`
}

// View flattens o for JSON output. Hidden outputs carry no record fields.
func (o Output) View() OutputView {
	v := OutputView{ID: o.ID, Hidden: o.Hidden, Tier: string(o.Tier)}
	if !o.Hidden {
		v.Icon = o.Record.Icon
		v.Content = o.Record.Content
		v.State = string(o.Record.State)
		v.Health = string(o.Record.Health)
		v.Stale = o.Record.Stale
	}
	return v
}

// Accessor serves render records using stale-while-revalidate.
type Accessor struct {
	orch     *Orchestrator
	refresh  *Coordinator
	settings Settings
	flight   singleflight.Group
	metrics  *Metrics
	log      zerolog.Logger
}

// NewAccessor creates an accessor. refresh may be nil when lazy loading is
// disabled, in which case nothing is ever refreshed in the background.
func NewAccessor(orch *Orchestrator, refresh *Coordinator, settings Settings, metrics *Metrics) *Accessor {
	return &Accessor{
		orch:     orch,
		refresh:  refresh,
		settings: settings,
		metrics:  metrics,
		log:      logging.Component("accessor"),
	}
}

// Get returns the current output for d. It never returns an error: every
// failure becomes a hidden output or a stale-flagged cached record.
func (a *Accessor) Get(ctx context.Context, d *Descriptor) Output {
	ctx = logging.WithPluginID(ctx, d.ID)
	out := a.get(ctx, d)
	out.ID = d.ID
	a.metrics.observeRender(out)
	return out
}

func (a *Accessor) get(ctx context.Context, d *Descriptor) Output {
	if err := a.orch.Prepare(ctx, d); err != nil {
		return Output{Hidden: true, Tier: TierExcluded}
	}

	policy := a.settings.PolicyFor(d)
	store := a.orch.Store()

	// Value and age come from one read and stay fixed for this decision.
	entry, found := store.Load(ctx, d.ID)
	age := entry.AgeAt(store.Clock().Now())

	var (
		prior    Record
		hasPrior bool
	)
	if found {
		rec, err := DecodeRecord(string(entry.Value))
		if err != nil {
			a.log.Debug().Ctx(ctx).Err(err).Msg("discarding unreadable cache entry")
		} else {
			prior, hasPrior = rec, true
		}
	}

	switch {
	case !hasPrior:
		return a.collect(ctx, d, TierMissing, prior, false)

	case age >= 0 && age <= policy.TTL:
		if !a.visible(ctx, d, prior, true) {
			return Output{Hidden: true, Tier: TierFresh}
		}
		return Output{Record: prior, Tier: TierFresh}

	case policy.LazyLoading && age > policy.TTL && age <= policy.StaleLimit():
		if a.refresh != nil {
			a.refresh.Request(ctx, d)
		}
		if !a.visible(ctx, d, prior, false) {
			return Output{Hidden: true, Tier: TierStale}
		}
		return Output{Record: prior, Tier: TierStale}
	}

	// Past the stale window, lazy loading off, or written in the future.
	usable := age <= policy.FallbackCeiling
	return a.collect(ctx, d, TierVeryOld, prior, usable)
}

// collect runs a synchronous collection. Concurrent callers for the same id
// share one collection. On failure a usable prior record is served with the
// stale flag forced and rewritten so its age restarts; otherwise the plugin
// is hidden and nothing is cached.
func (a *Accessor) collect(ctx context.Context, d *Descriptor, tier Tier, prior Record, usable bool) Output {
	v, err, _ := a.flight.Do(d.ID, func() (any, error) {
		return a.orch.Collect(ctx, d)
	})
	if err == nil {
		rec := v.(Record)
		if !a.visible(ctx, d, rec, false) {
			return Output{Hidden: true, Tier: tier}
		}
		return Output{Record: rec, Tier: tier}
	}

	if !errors.Is(err, ErrCollectionFailure) {
		a.log.Debug().Ctx(ctx).Err(err).Msg("synchronous collection unavailable")
	}

	if !usable {
		return Output{Hidden: true, Tier: tier}
	}

	prior.Stale = true
	if err := a.orch.Store().Set(ctx, d.ID, []byte(prior.Encode())); err != nil {
		a.log.Warn().Ctx(ctx).Err(err).Msg("failed to rewrite fallback entry")
	}
	if !a.visible(ctx, d, prior, false) {
		return Output{Hidden: true, Tier: tier}
	}
	return Output{Record: prior, Tier: tier}
}

// visible applies the presence rule. On a fresh hit a conditional plugin is
// also asked whether it should still be active.
func (a *Accessor) visible(ctx context.Context, d *Descriptor, rec Record, recheck bool) bool {
	presence := a.orch.Presence(d)
	if !rec.Visible(presence) {
		return false
	}
	if recheck && presence == plugins.PresenceConditional {
		return a.orch.Active(ctx, d)
	}
	return true
}
