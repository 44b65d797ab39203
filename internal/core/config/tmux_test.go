package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

const showOptions = `status on
status-interval 5
@powerkit_plugins "cpu,memory,external(\"X\"|\"hi\")"
@powerkit_lazy_loading off
@powerkit_stale_multiplier 4
@powerkit_plugin_cpu_cache_ttl 2
@powerkit_plugin_external_1_cache_ttl '30'
@powerkit_theme tokyo-night
`

func TestApplyTmux(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"tmux show-options -g": []byte(showOptions)},
	}
	cfg := DefaultConfig()
	cfg.TTL = map[string]int{"memory": 9}

	applied, err := cfg.ApplyTmux(context.Background(), exec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"@powerkit_plugins",
		"@powerkit_lazy_loading",
		"@powerkit_stale_multiplier",
		"@powerkit_plugin_cpu_cache_ttl",
		"@powerkit_plugin_external_1_cache_ttl",
	}, applied)
	assert.Equal(t, `cpu,memory,external("X"|"hi")`, cfg.Plugins)
	assert.False(t, cfg.LazyLoading)
	assert.Equal(t, 4, cfg.StaleMultiplier)

	ttl, ok := cfg.TTLFor("cpu")
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, ttl)
	ttl, _ = cfg.TTLFor("external_1")
	assert.Equal(t, 30*time.Second, ttl)
	ttl, _ = cfg.TTLFor("memory")
	assert.Equal(t, 9*time.Second, ttl, "file overrides survive")
}

func TestApplyTmux_NoServer(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Errors: map[string]error{"tmux": errors.New("no server running")},
	}
	cfg := DefaultConfig()
	before := cfg

	applied, err := cfg.ApplyTmux(context.Background(), exec)

	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Equal(t, before, cfg)
}

func TestApplyTmux_BadValues(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		wantErr string
	}{
		{name: "bool", out: "@powerkit_lazy_loading maybe", wantErr: "@powerkit_lazy_loading"},
		{name: "multiplier", out: "@powerkit_stale_multiplier 0", wantErr: "@powerkit_stale_multiplier"},
		{name: "ttl", out: "@powerkit_plugin_cpu_cache_ttl soon", wantErr: "@powerkit_plugin_cpu_cache_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &executil.RecordingExecutor{
				Outputs: map[string][]byte{"tmux": []byte(tt.out)},
			}
			cfg := DefaultConfig()
			_, err := cfg.ApplyTmux(context.Background(), exec)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestUnquoteTmux(t *testing.T) {
	tests := map[string]string{
		`plain`:        "plain",
		`"a b"`:        "a b",
		`"say \"hi\""`: `say "hi"`,
		`'single'`:     "single",
		`"`:            `"`,
		`""`:           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, unquoteTmux(in), in)
	}
}
