// Package daemon serves the HTTP surface of the long-running refresher:
// Prometheus metrics, liveness and readiness probes, the latest cycle's
// outputs and an on-demand refresh trigger.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/powerkit"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/iojson"
)

// maxGoroutines fails the liveness probe when refreshes pile up.
const maxGoroutines = 1000

// Cycler is the part of the scheduler the server exposes.
type Cycler interface {
	Latest() ([]powerkit.Output, time.Time)
	Ready() error
	Trigger()
}

// Options configures a Server.
type Options struct {
	Addr     string
	Registry *prometheus.Registry
	// RedisAddr adds a readiness check dialing the redis cache backend.
	RedisAddr string
	// Pprof mounts the runtime profiling handlers under /debug/pprof/.
	Pprof bool
}

type Server struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
}

// New builds a server for cycler.
func New(cycler Cycler, opts Options) *Server {
	health := healthcheck.NewMetricsHandler(opts.Registry, "powerkit")
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))
	health.AddReadinessCheck("cycle", cycler.Ready)
	if opts.RedisAddr != "" {
		health.AddReadinessCheck("redis", healthcheck.TCPDialCheck(opts.RedisAddr, time.Second))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)
	mux.HandleFunc("/status", statusHandler(cycler))
	mux.HandleFunc("/refresh", refreshHandler(cycler))

	if opts.Pprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return &Server{
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		addr: opts.Addr,
	}
}

type statusJSON struct {
	LastRun time.Time             `json:"last_run"`
	Ready   bool                  `json:"ready"`
	Plugins []powerkit.OutputView `json:"plugins"`
}

func statusHandler(cycler Cycler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		outs, last := cycler.Latest()
		body := statusJSON{
			LastRun: last,
			Ready:   cycler.Ready() == nil,
			Plugins: make([]powerkit.OutputView, len(outs)),
		}
		for i, o := range outs {
			body.Plugins[i] = o.View()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := iojson.WriteWith(w, w, body); err != nil {
			log.Debug().Err(err).Msg("write status response")
		}
	}
}

func refreshHandler(cycler Cycler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cycler.Trigger()
		w.WriteHeader(http.StatusAccepted)
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	log.Info().Str("addr", listener.Addr().String()).Msg("starting daemon server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("daemon server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down daemon server")
	return s.httpServer.Shutdown(ctx)
}
