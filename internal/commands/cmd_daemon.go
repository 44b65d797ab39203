package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/config"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/daemon"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/powerkit"
)

type DaemonCmd struct {
	flags *Flags
	app   *App

	// flags
	addr     string
	interval time.Duration
	pprof    bool
}

// NewDaemonCmd creates a new daemon command
func NewDaemonCmd(flags *Flags, app *App) *DaemonCmd {
	return &DaemonCmd{flags: flags, app: app}
}

// Register adds the daemon command to the application
func (cmd *DaemonCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "daemon",
		Usage:     "Keep the cache warm by rendering on an interval",
		UsageText: "powerkit daemon [--addr HOST:PORT] [--interval DURATION]",
		Description: `Runs processing cycles on an interval so status line renders are served from
fresh cache entries. Stale entries are refreshed on an in-process worker pool.

Serves /metrics, /live, /ready, /status and POST /refresh on --addr.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address for metrics and health endpoints (overrides daemon.addr)",
				Destination: &cmd.addr,
			},
			&cli.DurationFlag{
				Name:        "interval",
				Usage:       "time between cycles (overrides daemon.interval)",
				Destination: &cmd.interval,
			},
			&cli.BoolFlag{
				Name:        "pprof",
				Usage:       "serve runtime profiles under /debug/pprof/",
				Destination: &cmd.pprof,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *DaemonCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.app.Config
	addr := cfg.Daemon.Addr
	if cmd.addr != "" {
		addr = cmd.addr
	}
	interval := cfg.Daemon.Interval
	if cmd.interval > 0 {
		interval = cmd.interval
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipe, err := cmd.app.PipelineWith(config.RefreshPool)
	if err != nil {
		return err
	}

	sched := powerkit.NewScheduler(pipe, plugins.NewWorkerPool(cfg.Workers), interval, cmd.app.Clock)

	opts := daemon.Options{
		Addr:     addr,
		Registry: cmd.app.Prom,
		Pprof:    cmd.pprof,
	}
	if cfg.Cache.Backend == config.BackendRedis {
		opts.RedisAddr = cfg.Cache.RedisAddr
	}
	server := daemon.New(sched, opts)
	if err := server.Start(ctx); err != nil {
		return err
	}

	sched.Start(ctx)
	log.Info().Str("addr", server.Addr()).Dur("interval", interval).Msg("daemon running")

	<-ctx.Done()

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
