package powerkit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/logging"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

// Pipeline ties the components together for one configured plugin list.
// Descriptors are rebuilt by every call that runs a cycle.
type Pipeline struct {
	list     string
	registry *Registry
	orch     *Orchestrator
	refresh  *Coordinator
	accessor *Accessor
}

// NewPipeline assembles a pipeline. refresh may be nil.
func NewPipeline(list string, registry *Registry, orch *Orchestrator, refresh *Coordinator, settings Settings, metrics *Metrics) *Pipeline {
	background := refresh
	if !settings.LazyLoading {
		background = nil
	}
	return &Pipeline{
		list:     list,
		registry: registry,
		orch:     orch,
		refresh:  refresh,
		accessor: NewAccessor(orch, background, settings, metrics),
	}
}

// Discover parses the configured list into new descriptors.
func (p *Pipeline) Discover() ([]*Descriptor, []error) {
	return p.registry.Discover(p.list)
}

// RenderAll runs one processing cycle over every configured plugin, in list
// order, rendering at most pool.Size() plugins at a time.
func (p *Pipeline) RenderAll(ctx context.Context, pool *plugins.WorkerPool) []Output {
	p.orch.Store().ResetCycle()
	ctx = logging.WithCycle(ctx, uuid.NewString()[:8])

	descs, _ := p.Discover()
	outs := make([]Output, len(descs))
	pool.Each(ctx, len(descs), func(i int) {
		outs[i] = p.accessor.Get(ctx, descs[i])
	})
	for i := range outs {
		if outs[i].ID == "" {
			outs[i] = Output{ID: descs[i].ID, Hidden: true, Tier: TierExcluded}
		}
	}
	return outs
}

// Render runs a cycle for a single plugin id.
func (p *Pipeline) Render(ctx context.Context, id string) (Output, error) {
	d, err := p.find(id)
	if err != nil {
		return Output{}, err
	}
	p.orch.Store().ResetCycle()
	return p.accessor.Get(ctx, d), nil
}

// Refresh performs a background refresh for id owning token. It is the body
// of a spawned refresh process. The lock is released on every path,
// including when id is no longer in the plugin list.
func (p *Pipeline) Refresh(ctx context.Context, id, token string) error {
	if p.refresh == nil {
		return fmt.Errorf("refresh %s: no refresh coordinator", id)
	}
	d, err := p.find(id)
	if err != nil {
		p.refresh.Release(id, token)
		return err
	}
	return p.refresh.RunRefresh(ctx, d, token)
}

// Collect runs a synchronous collection for id regardless of the cached
// entry's age and writes the result.
func (p *Pipeline) Collect(ctx context.Context, id string) (Record, error) {
	d, err := p.find(id)
	if err != nil {
		return Record{}, err
	}
	return p.orch.Run(logging.WithPluginID(ctx, id), d)
}

// Inspect validates and initializes every descriptor without collecting,
// for diagnostics.
func (p *Pipeline) Inspect(ctx context.Context) ([]*Descriptor, []error) {
	descs, errs := p.Discover()
	for _, d := range descs {
		if err := p.orch.Prepare(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return descs, errs
}

func (p *Pipeline) find(id string) (*Descriptor, error) {
	descs, _ := p.Discover()
	for _, d := range descs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", id, ErrDiscoveryMiss)
}
