package config

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

const (
	tmuxPrefix    = "@powerkit_"
	tmuxTTLPrefix = "@powerkit_plugin_"
	tmuxTTLSuffix = "_cache_ttl"
)

// ApplyTmux overlays @powerkit_* global tmux options onto the config. It
// returns the option names it applied. A tmux server that is not running is
// not an error; the file config is used unchanged.
func (c *Config) ApplyTmux(ctx context.Context, e executil.Executor) ([]string, error) {
	out, err := e.Run(ctx, "tmux", "show-options", "-g")
	if err != nil {
		return nil, nil
	}

	opts := parseTmuxOptions(out)
	var applied []string

	if v, ok := opts["@powerkit_plugins"]; ok && v != "" {
		c.Plugins = v
		applied = append(applied, "@powerkit_plugins")
	}

	if v, ok := opts["@powerkit_lazy_loading"]; ok {
		b, err := parseTmuxBool(v)
		if err != nil {
			return applied, fmt.Errorf("@powerkit_lazy_loading: %w", err)
		}
		c.LazyLoading = b
		applied = append(applied, "@powerkit_lazy_loading")
	}

	if v, ok := opts["@powerkit_stale_multiplier"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return applied, fmt.Errorf("@powerkit_stale_multiplier: want an integer >= 1, got %q", v)
		}
		c.StaleMultiplier = n
		applied = append(applied, "@powerkit_stale_multiplier")
	}

	if v, ok := opts["@powerkit_default_ttl"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return applied, fmt.Errorf("@powerkit_default_ttl: want seconds, got %q", v)
		}
		c.DefaultTTL = n
		applied = append(applied, "@powerkit_default_ttl")
	}

	for _, name := range sortedKeys(opts) {
		if !strings.HasPrefix(name, tmuxTTLPrefix) || !strings.HasSuffix(name, tmuxTTLSuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, tmuxTTLPrefix), tmuxTTLSuffix)
		if id == "" {
			continue
		}
		n, err := strconv.Atoi(opts[name])
		if err != nil || n < 0 {
			return applied, fmt.Errorf("%s: want seconds, got %q", name, opts[name])
		}
		if c.TTL == nil {
			c.TTL = make(map[string]int)
		}
		c.TTL[id] = n
		applied = append(applied, name)
	}

	return applied, nil
}

// parseTmuxOptions reads `tmux show-options` output, keeping only
// @powerkit_ options. Values may be bare, double quoted with escapes, or
// single quoted.
func parseTmuxOptions(out []byte) map[string]string {
	opts := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, tmuxPrefix) {
			continue
		}
		name, value, _ := strings.Cut(line, " ")
		opts[name] = unquoteTmux(strings.TrimSpace(value))
	}
	return opts
}

func unquoteTmux(v string) string {
	if len(v) >= 2 {
		switch {
		case v[0] == '"' && v[len(v)-1] == '"':
			if s, err := strconv.Unquote(v); err == nil {
				return s
			}
			return v[1 : len(v)-1]
		case v[0] == '\'' && v[len(v)-1] == '\'':
			return v[1 : len(v)-1]
		}
	}
	return v
}

func parseTmuxBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("want on or off, got %q", v)
}
