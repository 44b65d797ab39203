// Package memory provides a RAM usage plugin.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

// Plugin renders used memory either as a percentage or as used/total.
type Plugin struct {
	read func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	opts *plugins.Options
	stat mem.VirtualMemoryStat
}

// New creates a memory plugin reading host statistics.
func New() *Plugin {
	return &Plugin{read: mem.VirtualMemoryWithContext, opts: plugins.NewOptions(nil)}
}

func (p *Plugin) ContentType() plugins.ContentType { return plugins.ContentDynamic }
func (p *Plugin) Presence() plugins.Presence       { return plugins.PresenceAlways }
func (p *Plugin) State() plugins.State             { return plugins.StateActive }
func (p *Plugin) Icon() string                     { return p.opts.String("icon") }
func (p *Plugin) DefaultTTL() time.Duration        { return 5 * time.Second }

func (p *Plugin) DeclareOptions(opts *plugins.Options) {
	opts.Declare("format", "percent", "percent or usage")
	opts.Declare("warning_threshold", "75", "used percent at which health becomes warning")
	opts.Declare("critical_threshold", "90", "used percent at which health becomes error")
	opts.Declare("icon", "", "icon shown before the value")
	p.opts = opts
}

func (p *Plugin) Collect(ctx context.Context) error {
	st, err := p.read(ctx)
	if err != nil {
		return fmt.Errorf("read memory: %w", err)
	}
	p.stat = *st
	return nil
}

func (p *Plugin) Health() plugins.Health {
	return plugins.HealthForLevel(p.stat.UsedPercent, p.opts.Float("warning_threshold"), p.opts.Float("critical_threshold"))
}

func (p *Plugin) Render() string {
	if p.opts.String("format") == "usage" {
		return humanize.IBytes(p.stat.Used) + "/" + humanize.IBytes(p.stat.Total)
	}
	return fmt.Sprintf("%.0f%%", p.stat.UsedPercent)
}
