// Package literal implements inline plugins declared directly in the plugin
// list. Their content is either constant text or a shell command written as
// $(cmd) or #(cmd), whose trimmed output becomes the content.
package literal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

// Plugin is a literal plugin instance.
type Plugin struct {
	exec    executil.Executor
	icon    string
	content string
	ttl     time.Duration

	output string
}

// New creates a literal plugin. A zero ttl leaves the TTL to configuration.
func New(e executil.Executor, icon, content string, ttl time.Duration) *Plugin {
	return &Plugin{exec: e, icon: icon, content: content, ttl: ttl}
}

// Command returns the shell command embedded in content, if any.
func Command(content string) (string, bool) {
	for _, open := range []string{"$(", "#("} {
		if strings.HasPrefix(content, open) && strings.HasSuffix(content, ")") {
			return strings.TrimSpace(content[len(open) : len(content)-1]), true
		}
	}
	return "", false
}

func (p *Plugin) ContentType() plugins.ContentType {
	if _, ok := Command(p.content); ok {
		return plugins.ContentDynamic
	}
	return plugins.ContentStatic
}

func (p *Plugin) Presence() plugins.Presence { return plugins.PresenceAlways }
func (p *Plugin) Icon() string               { return p.icon }
func (p *Plugin) Render() string             { return p.output }

func (p *Plugin) State() plugins.State {
	if p.output == "" {
		return plugins.StateInactive
	}
	return plugins.StateActive
}

func (p *Plugin) DefaultTTL() time.Duration {
	return p.ttl
}

func (p *Plugin) Collect(ctx context.Context) error {
	cmd, ok := Command(p.content)
	if !ok {
		p.output = p.content
		return nil
	}
	if cmd == "" {
		return errors.New("empty command")
	}

	out, err := p.exec.Run(ctx, "sh", "-c", cmd)
	if err != nil {
		return fmt.Errorf("run %q: %w", cmd, err)
	}
	p.output = strings.TrimSpace(string(out))
	return nil
}
