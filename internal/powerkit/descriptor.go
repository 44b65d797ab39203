package powerkit

import (
	"time"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

// LifecycleState is a descriptor's position in the plugin lifecycle.
type LifecycleState string

const (
	StateDiscovered    LifecycleState = "discovered"
	StateValidated     LifecycleState = "validated"
	StateInvalid       LifecycleState = "invalid"
	StateInitialized   LifecycleState = "initialized"
	StateInitFailed    LifecycleState = "init_failed"
	StateCollectFailed LifecycleState = "collect_failed"
	StateResolved      LifecycleState = "resolved"
)

// Excluded reports whether a descriptor in this state produces no output.
func (s LifecycleState) Excluded() bool {
	return s == StateInvalid || s == StateInitFailed
}

// Literal is an inline plugin declared in the plugin list.
type Literal struct {
	Icon    string
	Content string
	TTL     time.Duration
}

// Source says where a descriptor's implementation comes from: a catalog
// name, or an inline literal.
type Source struct {
	Ref     string
	Literal *Literal
}

// Descriptor is one plugin entry for one pipeline run. Only the
// Orchestrator changes State.
type Descriptor struct {
	ID     string
	Source Source
	Group  string
	State  LifecycleState

	impl        any
	plugin      plugins.Plugin
	opts        *plugins.Options
	contentType plugins.ContentType
}

// Plugin returns the loaded implementation once the descriptor is validated.
func (d *Descriptor) Plugin() plugins.Plugin {
	return d.plugin
}

// ContentType returns the content type reported by the last resolve, or ""
// before the descriptor has been resolved.
func (d *Descriptor) ContentType() plugins.ContentType {
	return d.contentType
}

// Options returns the option set declared during initialization.
func (d *Descriptor) Options() *plugins.Options {
	return d.opts
}

// Fresh returns an unloaded copy in the discovered state. Background
// refreshes use it so they never share plugin state with the foreground.
func (d *Descriptor) Fresh() *Descriptor {
	return &Descriptor{ID: d.ID, Source: d.Source, Group: d.Group, State: StateDiscovered}
}
