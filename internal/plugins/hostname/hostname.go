// Package hostname provides a plugin showing the machine name.
package hostname

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

// Plugin renders the host name.
type Plugin struct {
	lookup func() (string, error)
	opts   *plugins.Options
	name   string
}

// New creates a hostname plugin.
func New() *Plugin {
	return &Plugin{lookup: os.Hostname, opts: plugins.NewOptions(nil)}
}

func (p *Plugin) ContentType() plugins.ContentType { return plugins.ContentStatic }
func (p *Plugin) Presence() plugins.Presence       { return plugins.PresenceAlways }
func (p *Plugin) State() plugins.State             { return plugins.StateActive }
func (p *Plugin) Icon() string                     { return p.opts.String("icon") }
func (p *Plugin) DefaultTTL() time.Duration        { return time.Hour }
func (p *Plugin) Render() string                   { return p.name }

func (p *Plugin) DeclareOptions(opts *plugins.Options) {
	opts.Declare("short", "true", "drop the domain part")
	opts.Declare("icon", "", "icon shown before the name")
	p.opts = opts
}

func (p *Plugin) Collect(_ context.Context) error {
	name, err := p.lookup()
	if err != nil {
		return err
	}
	if p.opts.Bool("short") {
		name, _, _ = strings.Cut(name, ".")
	}
	p.name = name
	return nil
}
