package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// glob syntax, backend settings, and file accessibility. The configPath argument
// specifies the config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateBackends(),
		c.validateTTLPatterns(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	listed := c.ListedPlugins()
	for _, id := range sortedKeys(c.PluginOptions) {
		if !slices.Contains(listed, id) {
			warnings = append(warnings, ValidationWarning{
				Category: "PluginOptions",
				Item:     id,
				Message:  "options set for a plugin that is not in the plugin list",
			})
		}
	}

	for _, key := range sortedKeys(c.TTL) {
		matched := false
		for _, id := range listed {
			if key == id {
				matched = true
				break
			}
			if ok, _ := doublestar.Match(key, id); ok && isGlob(key) {
				matched = true
				break
			}
		}
		if !matched {
			warnings = append(warnings, ValidationWarning{
				Category: "TTL",
				Item:     key,
				Message:  "ttl override matches no listed plugin",
			})
		}
	}

	if !c.LazyLoading && c.Refresh.Mode == RefreshPool {
		warnings = append(warnings, ValidationWarning{
			Category: "Refresh",
			Item:     "refresh.mode",
			Message:  "refresh pool is unused while lazy_loading is off",
		})
	}

	if c.Cache.Backend == BackendLevelDB && c.Refresh.Mode == RefreshProcess && c.LazyLoading {
		warnings = append(warnings, ValidationWarning{
			Category: "Cache",
			Item:     "cache.backend",
			Message:  "leveldb allows one process at a time; refreshes spawned as processes may find it locked",
		})
	}

	return warnings
}

// ListedPlugins returns the plain plugin names in the plugin list, including
// names inside groups. Inline external plugins are skipped.
func (c *Config) ListedPlugins() []string {
	var out []string
	for _, raw := range strings.FieldsFunc(c.Plugins, func(r rune) bool { return r == ',' }) {
		name := strings.TrimSpace(raw)
		name = strings.TrimPrefix(name, "group(")
		name = strings.TrimSuffix(name, ")")
		if name == "" || strings.ContainsAny(name, `"(|`) {
			continue
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// validateFileAccess checks the config file and the state, cache and lock
// directories.
func (c *Config) validateFileAccess(configPath string) error {
	dirs := []error{
		validateConfigFile(configPath),
		criterio.Run("state_dir", c.StateDir, isDirectoryOrNotExist),
		criterio.Run("lock.dir", c.Lock.Dir, isDirectoryOrNotExist),
	}
	if c.Cache.Backend == BackendFile || c.Cache.Backend == BackendLevelDB {
		dirs = append(dirs, criterio.Run("cache.dir", c.Cache.Dir, isDirectoryOrNotExist))
	}
	return criterio.ValidateStruct(dirs...)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

// validateBackends checks backend and refresh mode names and the settings
// each one needs.
func (c *Config) validateBackends() error {
	var errs criterio.FieldErrorsBuilder

	switch c.Cache.Backend {
	case BackendFile, BackendLevelDB:
		if c.Cache.Dir == "" {
			errs = errs.Append("cache.dir", fmt.Errorf("required for the %s backend", c.Cache.Backend))
		}
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			errs = errs.Append("cache.redis_addr", fmt.Errorf("required for the redis backend"))
		}
	case BackendMemory:
	default:
		errs = errs.Append("cache.backend", fmt.Errorf("unknown backend %q (want file, leveldb, redis or memory)", c.Cache.Backend))
	}

	switch c.Refresh.Mode {
	case RefreshProcess, RefreshPool:
	default:
		errs = errs.Append("refresh.mode", fmt.Errorf("unknown mode %q (want process or pool)", c.Refresh.Mode))
	}

	return errs.ToError()
}

// validateTTLPatterns checks glob syntax of ttl keys.
func (c *Config) validateTTLPatterns() error {
	var errs criterio.FieldErrorsBuilder
	for _, key := range sortedKeys(c.TTL) {
		if isGlob(key) && !doublestar.ValidatePattern(key) {
			errs = errs.Append(fmt.Sprintf("ttl[%q]", key), fmt.Errorf("invalid glob pattern"))
		}
	}
	return errs.ToError()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
