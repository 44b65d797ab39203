package kubernetes

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

const sampleConfig = `
apiVersion: v1
kind: Config
current-context: prod-eu
contexts:
  - name: prod-eu
    context:
      cluster: eu-1
      namespace: payments
  - name: dev
    context:
      cluster: local
`

func newPlugin(t *testing.T, files map[string]string, values map[string]any) *Plugin {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		paths = append(paths, path)
	}

	p := New()
	paths = append([]string{filepath.Join(dir, "missing")}, paths...)
	p.getenv = func(k string) string {
		if k == "KUBECONFIG" {
			return strings.Join(paths, string(os.PathListSeparator))
		}
		return ""
	}
	p.DeclareOptions(plugins.NewOptions(values))
	return p
}

func TestPlugin_Collect(t *testing.T) {
	p := newPlugin(t, map[string]string{"config": sampleConfig}, nil)

	require.True(t, p.CheckDependencies(context.Background()))
	require.NoError(t, p.Collect(context.Background()))

	assert.Equal(t, plugins.StateActive, p.State())
	assert.Equal(t, "prod-eu:payments", p.Render())
	assert.Equal(t, plugins.HealthOK, p.Health())
	assert.True(t, p.ShouldBeActive(context.Background()))
}

func TestPlugin_HideNamespace(t *testing.T) {
	p := newPlugin(t, map[string]string{"config": sampleConfig}, map[string]any{"show_namespace": false})

	require.NoError(t, p.Collect(context.Background()))
	assert.Equal(t, "prod-eu", p.Render())
}

func TestPlugin_WarnContexts(t *testing.T) {
	p := newPlugin(t, map[string]string{"config": sampleConfig}, map[string]any{"warn_contexts": "staging-*, prod-*"})

	require.NoError(t, p.Collect(context.Background()))
	assert.Equal(t, plugins.HealthWarning, p.Health())
}

func TestPlugin_NoCurrentContext(t *testing.T) {
	p := newPlugin(t, map[string]string{"config": "contexts: []\n"}, nil)

	require.NoError(t, p.Collect(context.Background()))
	assert.Equal(t, plugins.StateInactive, p.State())
	assert.False(t, p.ShouldBeActive(context.Background()))
}

func TestPlugin_NoConfig(t *testing.T) {
	p := newPlugin(t, nil, nil)

	assert.False(t, p.CheckDependencies(context.Background()))
	assert.Error(t, p.Collect(context.Background()))
}

func TestPlugin_MalformedConfig(t *testing.T) {
	p := newPlugin(t, map[string]string{"config": "current-context: [unclosed"}, nil)

	assert.Error(t, p.Collect(context.Background()))
}
