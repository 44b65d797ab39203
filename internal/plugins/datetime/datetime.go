// Package datetime provides a clock plugin.
package datetime

import (
	"context"
	"time"

	"github.com/facebookgo/clock"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

// Plugin renders the current time.
type Plugin struct {
	clock clock.Clock
	opts  *plugins.Options
	now   time.Time
}

// New creates a datetime plugin reading c. A nil clock uses the wall clock.
func New(c clock.Clock) *Plugin {
	if c == nil {
		c = clock.New()
	}
	return &Plugin{clock: c, opts: plugins.NewOptions(nil)}
}

func (p *Plugin) ContentType() plugins.ContentType { return plugins.ContentDynamic }
func (p *Plugin) Presence() plugins.Presence       { return plugins.PresenceAlways }
func (p *Plugin) State() plugins.State             { return plugins.StateActive }
func (p *Plugin) Icon() string                     { return p.opts.String("icon") }
func (p *Plugin) DefaultTTL() time.Duration        { return time.Second }

func (p *Plugin) DeclareOptions(opts *plugins.Options) {
	opts.Declare("format", "15:04", "Go time layout")
	opts.Declare("timezone", "", "IANA zone name, empty for local time")
	opts.Declare("icon", "", "icon shown before the time")
	p.opts = opts
}

func (p *Plugin) Collect(_ context.Context) error {
	now := p.clock.Now()
	if tz := p.opts.String("timezone"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return err
		}
		now = now.In(loc)
	}
	p.now = now
	return nil
}

func (p *Plugin) Render() string {
	format := p.opts.String("format")
	if format == "" {
		format = "15:04"
	}
	return p.now.Format(format)
}
