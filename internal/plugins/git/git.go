// Package git provides a plugin showing the branch and dirty state of a
// working tree. It is only shown inside a repository.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	coregit "github.com/totallyGreg/tmux-powerkit-sub000/internal/core/git"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

// Plugin renders "<branch>" with a dirty marker when the tree has changes.
type Plugin struct {
	git      coregit.Git
	lookPath func(string) (string, error)
	opts     *plugins.Options

	inRepo    bool
	branch    string
	changes   int
	additions int
	deletions int
}

// New creates a git plugin that shells out through e.
func New(e executil.Executor) *Plugin {
	return &Plugin{
		git:      coregit.NewExecutor("git", e),
		lookPath: exec.LookPath,
		opts:     plugins.NewOptions(nil),
	}
}

func (p *Plugin) ContentType() plugins.ContentType { return plugins.ContentDynamic }
func (p *Plugin) Presence() plugins.Presence       { return plugins.PresenceConditional }
func (p *Plugin) Icon() string                     { return p.opts.String("icon") }
func (p *Plugin) DefaultTTL() time.Duration        { return 5 * time.Second }

func (p *Plugin) DeclareOptions(opts *plugins.Options) {
	opts.Declare("path", ".", "working tree to inspect")
	opts.Declare("dirty_marker", "*", "suffix shown when the tree has changes")
	opts.Declare("show_count", "false", "show the number of changed paths")
	opts.Declare("show_diff", "false", "show lines added and deleted since HEAD")
	opts.Declare("icon", "", "icon shown before the branch")
	p.opts = opts
}

func (p *Plugin) CheckDependencies(_ context.Context) bool {
	_, err := p.lookPath("git")
	return err == nil
}

func (p *Plugin) ShouldBeActive(ctx context.Context) bool {
	return p.git.InsideWorkTree(ctx, p.dir())
}

func (p *Plugin) Collect(ctx context.Context) error {
	p.branch, p.changes, p.additions, p.deletions = "", 0, 0, 0
	p.inRepo = p.ShouldBeActive(ctx)
	if !p.inRepo {
		return nil
	}

	branch, err := p.git.Branch(ctx, p.dir())
	if err != nil {
		return fmt.Errorf("read branch: %w", err)
	}
	p.branch = branch

	p.changes, err = p.git.ChangedPaths(ctx, p.dir())
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}

	if p.changes > 0 && p.opts.Bool("show_diff") {
		p.additions, p.deletions, err = p.git.DiffStats(ctx, p.dir())
		if err != nil {
			return fmt.Errorf("read diff: %w", err)
		}
	}
	return nil
}

func (p *Plugin) State() plugins.State {
	if !p.inRepo {
		return plugins.StateInactive
	}
	return plugins.StateActive
}

func (p *Plugin) Health() plugins.Health {
	if p.changes > 0 {
		return plugins.HealthWarning
	}
	return plugins.HealthGood
}

func (p *Plugin) Render() string {
	if !p.inRepo {
		return ""
	}
	out := p.branch
	if p.changes > 0 {
		out += p.opts.String("dirty_marker")
		if p.opts.Bool("show_count") {
			out += fmt.Sprintf("%d", p.changes)
		}
	}
	if p.additions > 0 || p.deletions > 0 {
		out += fmt.Sprintf(" +%d -%d", p.additions, p.deletions)
	}
	return out
}

func (p *Plugin) dir() string {
	if d := p.opts.String("path"); d != "" {
		return d
	}
	return "."
}
