package powerkit

import (
	"time"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

const (
	DefaultTTL             = 5 * time.Second
	DefaultStaleMultiplier = 3
	DefaultFallbackCeiling = 24 * time.Hour
)

// Policy is the caching policy applied to one plugin.
type Policy struct {
	TTL             time.Duration
	StaleMultiplier int
	LazyLoading     bool
	FallbackCeiling time.Duration
}

// StaleLimit is the oldest age still served from cache while a refresh runs.
func (p Policy) StaleLimit() time.Duration {
	m := p.StaleMultiplier
	if m < 1 {
		m = 1
	}
	return p.TTL * time.Duration(m)
}

// TTLSource answers configured TTL overrides by plugin id.
type TTLSource interface {
	TTLFor(id string) (time.Duration, bool)
}

// Settings are the global caching settings.
type Settings struct {
	LazyLoading     bool
	StaleMultiplier int
	DefaultTTL      time.Duration
	FallbackCeiling time.Duration
	TTLs            TTLSource
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		LazyLoading:     true,
		StaleMultiplier: DefaultStaleMultiplier,
		DefaultTTL:      DefaultTTL,
		FallbackCeiling: DefaultFallbackCeiling,
	}
}

// PolicyFor picks the TTL for d: configuration first, then the plugin's own
// default, then the global default.
func (s Settings) PolicyFor(d *Descriptor) Policy {
	p := Policy{
		TTL:             s.DefaultTTL,
		StaleMultiplier: s.StaleMultiplier,
		LazyLoading:     s.LazyLoading,
		FallbackCeiling: s.FallbackCeiling,
	}
	if p.FallbackCeiling <= 0 {
		p.FallbackCeiling = DefaultFallbackCeiling
	}

	if s.TTLs != nil {
		if ttl, ok := s.TTLs.TTLFor(d.ID); ok {
			p.TTL = ttl
			return p
		}
	}
	if tp, ok := d.impl.(plugins.TTLProvider); ok {
		if ttl := tp.DefaultTTL(); ttl > 0 {
			p.TTL = ttl
		}
	}
	return p
}
