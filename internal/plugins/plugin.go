// Package plugins defines the contract every status plugin implements and
// the small amount of shared machinery plugins use.
//
// A plugin is any value that satisfies Plugin. Each mandatory operation is
// also its own single-method interface so a loaded implementation can be
// checked operation by operation. The remaining interfaces are optional and
// discovered with a type assertion; a plugin that does not implement one gets
// the documented default.
package plugins

import (
	"context"
	"fmt"
	"time"
)

// ContentType tells the presentation layer whether content changes between
// collections.
type ContentType string

const (
	ContentStatic  ContentType = "static"
	ContentDynamic ContentType = "dynamic"
)

// Presence controls when a plugin is shown.
type Presence string

const (
	PresenceAlways      Presence = "always"
	PresenceConditional Presence = "conditional"
	PresenceHidden      Presence = "hidden"
)

// State is the operational state a plugin reports after collecting.
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
	StateDegraded State = "degraded"
	StateFailed   State = "failed"
)

// Health is the severity a plugin attaches to its current value.
type Health string

const (
	HealthOK      Health = "ok"
	HealthGood    Health = "good"
	HealthInfo    Health = "info"
	HealthWarning Health = "warning"
	HealthError   Health = "error"
)

// ParseContentType parses a content type value.
func ParseContentType(s string) (ContentType, error) {
	switch ct := ContentType(s); ct {
	case ContentStatic, ContentDynamic:
		return ct, nil
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// ParseState parses a stored state value.
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StateInactive, StateActive, StateDegraded, StateFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown state %q", s)
}

// ParseHealth parses a stored health value.
func ParseHealth(s string) (Health, error) {
	switch h := Health(s); h {
	case HealthOK, HealthGood, HealthInfo, HealthWarning, HealthError:
		return h, nil
	}
	return "", fmt.Errorf("unknown health %q", s)
}

// Mandatory operations.
type (
	ContentTyper interface{ ContentType() ContentType }
	Presencer    interface{ Presence() Presence }
	Stater       interface{ State() State }
	Renderer     interface{ Render() string }

	// Collector gathers the plugin's data. A returned error is a collection
	// failure; plugins bound their own run time.
	Collector interface {
		Collect(ctx context.Context) error
	}
)

// Plugin is the full mandatory contract.
type Plugin interface {
	ContentTyper
	Presencer
	Stater
	Collector
	Renderer
}

// HealthReporter is implemented by plugins that grade their value. Plugins
// without it report HealthOK.
type HealthReporter interface {
	Health() Health
}

// IconProvider is implemented by plugins that show an icon.
type IconProvider interface {
	Icon() string
}

// DependencyChecker reports whether the plugin can run on this host, for
// example whether a required binary is installed. Returning false is routine
// and simply excludes the plugin.
type DependencyChecker interface {
	CheckDependencies(ctx context.Context) bool
}

// OptionDeclarer registers the options a plugin understands. The plugin may
// keep opts and read from it during Collect.
type OptionDeclarer interface {
	DeclareOptions(opts *Options)
}

// ActivityChecker is a cheap liveness probe used for conditional plugins
// when a cached value is served without collecting.
type ActivityChecker interface {
	ShouldBeActive(ctx context.Context) bool
}

// TTLProvider supplies a plugin's default cache TTL. Configuration overrides it.
type TTLProvider interface {
	DefaultTTL() time.Duration
}

// HealthForLevel grades a reading against warning and error thresholds.
// A non-positive threshold disables that grade.
func HealthForLevel(v, warn, crit float64) Health {
	switch {
	case crit > 0 && v >= crit:
		return HealthError
	case warn > 0 && v >= warn:
		return HealthWarning
	}
	return HealthOK
}
