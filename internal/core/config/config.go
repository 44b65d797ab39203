// Package config handles configuration loading and validation for powerkit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
	BackendRedis   = "redis"
	BackendMemory  = "memory"
)

// Refresh modes.
const (
	RefreshProcess = "process"
	RefreshPool    = "pool"
)

// Config holds the application configuration.
type Config struct {
	Plugins         string                    `yaml:"plugins"`
	LazyLoading     bool                      `yaml:"lazy_loading"`
	StaleMultiplier int                       `yaml:"stale_multiplier"`
	DefaultTTL      int                       `yaml:"default_ttl"` // seconds
	TTL             map[string]int            `yaml:"ttl"`         // plugin id or glob -> seconds
	FallbackCeiling time.Duration             `yaml:"fallback_ceiling"`
	PluginOptions   map[string]map[string]any `yaml:"plugin_options"`
	Workers         int                       `yaml:"workers"` // concurrent renders in status
	TmuxOptions     bool                      `yaml:"tmux_options"`
	Theme           string                    `yaml:"theme"`
	Cache           CacheConfig               `yaml:"cache"`
	Lock            LockConfig                `yaml:"lock"`
	Refresh         RefreshConfig             `yaml:"refresh"`
	Daemon          DaemonConfig              `yaml:"daemon"`
	StateDir        string                    `yaml:"-"` // set by caller, not from config file
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir"`        // file and leveldb backends
	RedisAddr string `yaml:"redis_addr"` // redis backend
	Namespace string `yaml:"namespace"`  // redis key prefix
}

// LockConfig configures the background refresh lock.
type LockConfig struct {
	Dir          string        `yaml:"dir"`
	ReclaimAfter time.Duration `yaml:"reclaim_after"`
}

// RefreshConfig selects how background refreshes run.
type RefreshConfig struct {
	Mode    string `yaml:"mode"`
	Workers int    `yaml:"workers"` // pool mode only
}

// DaemonConfig configures the long-running daemon.
type DaemonConfig struct {
	Addr     string        `yaml:"addr"`
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Plugins:         "datetime,hostname,cpu,memory,git",
		LazyLoading:     true,
		StaleMultiplier: 3,
		DefaultTTL:      5,
		FallbackCeiling: 24 * time.Hour,
		Workers:         4,
		TmuxOptions:     true,
		Theme:           "tokyo-night",
		Cache: CacheConfig{
			Backend:   BackendFile,
			Namespace: "powerkit",
		},
		Lock: LockConfig{
			ReclaimAfter: 60 * time.Second,
		},
		Refresh: RefreshConfig{
			Mode:    RefreshProcess,
			Workers: 4,
		},
		Daemon: DaemonConfig{
			Addr:     "127.0.0.1:9477",
			Interval: 5 * time.Second,
		},
	}
}

// Load reads configuration from the given path and sets the state directory.
// If configPath is empty or doesn't exist, returns defaults with the provided stateDir.
func Load(configPath, stateDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.StateDir = stateDir
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaults.Cache.Backend
	}
	if c.Cache.Dir == "" && c.StateDir != "" {
		c.Cache.Dir = filepath.Join(c.StateDir, "cache")
	}
	if c.Lock.Dir == "" && c.StateDir != "" {
		c.Lock.Dir = filepath.Join(c.StateDir, "locks")
	}
	if c.Lock.ReclaimAfter == 0 {
		c.Lock.ReclaimAfter = defaults.Lock.ReclaimAfter
	}
	if c.Refresh.Mode == "" {
		c.Refresh.Mode = defaults.Refresh.Mode
	}
	if c.Refresh.Workers == 0 {
		c.Refresh.Workers = defaults.Refresh.Workers
	}
	if c.Workers == 0 {
		c.Workers = defaults.Workers
	}
	if c.FallbackCeiling == 0 {
		c.FallbackCeiling = defaults.FallbackCeiling
	}
	if c.Daemon.Interval == 0 {
		c.Daemon.Interval = defaults.Daemon.Interval
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("state directory cannot be empty")
	}

	if c.StaleMultiplier < 1 {
		return fmt.Errorf("stale_multiplier must be at least 1")
	}

	if c.DefaultTTL < 0 {
		return fmt.Errorf("default_ttl cannot be negative")
	}

	if c.FallbackCeiling < 0 {
		return fmt.Errorf("fallback_ceiling cannot be negative")
	}

	for pattern, secs := range c.TTL {
		if secs < 0 {
			return fmt.Errorf("ttl %q cannot be negative", pattern)
		}
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	if c.Refresh.Workers < 1 {
		return fmt.Errorf("refresh.workers must be at least 1")
	}

	if c.Daemon.Interval < 0 {
		return fmt.Errorf("daemon.interval cannot be negative")
	}

	return nil
}

// DefaultTTLDuration returns default_ttl as a duration.
func (c *Config) DefaultTTLDuration() time.Duration {
	return time.Duration(c.DefaultTTL) * time.Second
}

// TTLFor returns the configured TTL for a plugin id. An exact key wins over
// glob patterns; among patterns the longest match wins, ties broken
// alphabetically.
func (c *Config) TTLFor(id string) (time.Duration, bool) {
	if secs, ok := c.TTL[id]; ok {
		return time.Duration(secs) * time.Second, true
	}

	patterns := make([]string, 0, len(c.TTL))
	for p := range c.TTL {
		if isGlob(p) {
			patterns = append(patterns, p)
		}
	}
	slices.SortFunc(patterns, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})

	for _, p := range patterns {
		if ok, err := doublestar.Match(p, id); err == nil && ok {
			return time.Duration(c.TTL[p]) * time.Second, true
		}
	}
	return 0, false
}

// LogFile returns the default log file inside the state directory.
func (c *Config) LogFile() string {
	return filepath.Join(c.StateDir, "powerkit.log")
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
