package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/powerkit"
)

type fakeCycler struct {
	outs     []powerkit.Output
	last     time.Time
	ready    error
	triggers atomic.Int32
}

func (f *fakeCycler) Latest() ([]powerkit.Output, time.Time) { return f.outs, f.last }
func (f *fakeCycler) Ready() error                           { return f.ready }
func (f *fakeCycler) Trigger()                               { f.triggers.Add(1) }

func startServer(t *testing.T, cycler Cycler, pprof bool) string {
	t.Helper()

	server := New(cycler, Options{Addr: "127.0.0.1:0", Registry: prometheus.NewRegistry(), Pprof: pprof})
	require.NoError(t, server.Start(context.Background()), "Start() error")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})
	return "http://" + server.Addr()
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err, "GET %s error", url)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := New(&fakeCycler{}, Options{Addr: "127.0.0.1:0", Registry: prometheus.NewRegistry()})

	require.NoError(t, server.Start(context.Background()), "Start() error")
	assert.NotEmpty(t, server.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx), "Shutdown() error")
}

func TestServer_AddrBeforeStart(t *testing.T) {
	server := New(&fakeCycler{}, Options{Addr: "127.0.0.1:0", Registry: prometheus.NewRegistry()})
	assert.Empty(t, server.Addr())
}

func TestServer_Probes(t *testing.T) {
	tests := []struct {
		name      string
		ready     error
		wantReady int
	}{
		{name: "ready", ready: nil, wantReady: http.StatusOK},
		{name: "no cycle yet", ready: errors.New("no cycle completed yet"), wantReady: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := startServer(t, &fakeCycler{ready: tt.ready}, false)

			code, _ := get(t, base+"/live")
			assert.Equal(t, http.StatusOK, code)

			code, _ = get(t, base+"/ready")
			assert.Equal(t, tt.wantReady, code)
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	base := startServer(t, &fakeCycler{}, false)

	// Probe first so the health check gauges have samples.
	_, _ = get(t, base+"/ready")

	code, body := get(t, base+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "powerkit_healthcheck_status")
}

func TestServer_Status(t *testing.T) {
	last := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cycler := &fakeCycler{
		last: last,
		outs: []powerkit.Output{
			{ID: "cpu", Tier: powerkit.TierFresh, Record: powerkit.Record{
				Icon: "C", Content: "12%", State: plugins.StateActive, Health: plugins.HealthGood,
			}},
			{ID: "git", Tier: powerkit.TierExcluded, Hidden: true},
		},
	}
	base := startServer(t, cycler, false)

	code, body := get(t, base+"/status")
	require.Equal(t, http.StatusOK, code)

	var got statusJSON
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Ready)
	assert.True(t, got.LastRun.Equal(last))
	require.Len(t, got.Plugins, 2)
	assert.Equal(t, "12%", got.Plugins[0].Content)
	assert.Equal(t, "fresh", got.Plugins[0].Tier)
	assert.True(t, got.Plugins[1].Hidden)
	assert.Empty(t, got.Plugins[1].Content)
}

func TestServer_Refresh(t *testing.T) {
	cycler := &fakeCycler{}
	base := startServer(t, cycler, false)

	code, _ := get(t, base+"/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, int32(0), cycler.triggers.Load())

	resp, err := http.Post(base+"/refresh", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, int32(1), cycler.triggers.Load())
}

func TestServer_PprofEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		pprof    bool
		wantCode int
	}{
		{name: "enabled", pprof: true, wantCode: http.StatusOK},
		{name: "disabled", pprof: false, wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := startServer(t, &fakeCycler{}, tt.pprof)

			code, _ := get(t, base+"/debug/pprof/cmdline")
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
