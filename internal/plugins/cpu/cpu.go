// Package cpu provides a CPU utilisation plugin.
package cpu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

type sampler interface {
	Percent(ctx context.Context, interval time.Duration) (float64, error)
	Load1(ctx context.Context) (float64, error)
}

type hostSampler struct{}

func (hostSampler) Percent(ctx context.Context, interval time.Duration) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, errors.New("no cpu samples")
	}
	return pcts[0], nil
}

func (hostSampler) Load1(ctx context.Context) (float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return avg.Load1, nil
}

// Plugin renders total CPU usage, optionally with the 1 minute load average.
type Plugin struct {
	sampler sampler
	opts    *plugins.Options
	percent float64
	load1   float64
}

// New creates a CPU plugin sampling the host.
func New() *Plugin {
	return &Plugin{sampler: hostSampler{}, opts: plugins.NewOptions(nil)}
}

func (p *Plugin) ContentType() plugins.ContentType { return plugins.ContentDynamic }
func (p *Plugin) Presence() plugins.Presence       { return plugins.PresenceAlways }
func (p *Plugin) State() plugins.State             { return plugins.StateActive }
func (p *Plugin) Icon() string                     { return p.opts.String("icon") }
func (p *Plugin) DefaultTTL() time.Duration        { return 5 * time.Second }

func (p *Plugin) DeclareOptions(opts *plugins.Options) {
	opts.Declare("interval", "250ms", "sampling window")
	opts.Declare("warning_threshold", "70", "percent at which health becomes warning")
	opts.Declare("critical_threshold", "90", "percent at which health becomes error")
	opts.Declare("show_load", "false", "append the 1 minute load average")
	opts.Declare("icon", "", "icon shown before the value")
	p.opts = opts
}

func (p *Plugin) Collect(ctx context.Context) error {
	pct, err := p.sampler.Percent(ctx, p.opts.Duration("interval"))
	if err != nil {
		return fmt.Errorf("sample cpu: %w", err)
	}
	p.percent = pct

	if p.opts.Bool("show_load") {
		l, err := p.sampler.Load1(ctx)
		if err != nil {
			return fmt.Errorf("load average: %w", err)
		}
		p.load1 = l
	}
	return nil
}

func (p *Plugin) Health() plugins.Health {
	return plugins.HealthForLevel(p.percent, p.opts.Float("warning_threshold"), p.opts.Float("critical_threshold"))
}

func (p *Plugin) Render() string {
	out := fmt.Sprintf("%.0f%%", p.percent)
	if p.opts.Bool("show_load") {
		out += fmt.Sprintf(" %.2f", p.load1)
	}
	return out
}
