package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/commands"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/config"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/logging"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/styles"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser   func()
		powerkitApp = &commands.App{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "powerkit",
		Usage:     "Render tmux status line segments from cached plugin data",
		UsageText: "powerkit [global options] command [command options]",
		Description: `Powerkit collects status line data from plugins (cpu, memory, git, ...) and
serves it to tmux through a TTL cache.

Renders never wait on a stale plugin: the cached record is shown while a
single background refresh updates it. Run 'powerkit daemon' to keep the
cache warm, or let renders refresh lazily on demand.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (trace, debug, info, warn, error, disabled)",
				Sources:     cli.EnvVars("POWERKIT_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <state-dir>/powerkit.log, - discards)",
				Sources:     cli.EnvVars("POWERKIT_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("POWERKIT_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "state-dir",
				Usage:       "path to cache, lock and log directory",
				Sources:     cli.EnvVars("POWERKIT_STATE_DIR"),
				Value:       commands.DefaultStateDir(),
				Destination: &flags.StateDir,
			},
			&cli.BoolFlag{
				Name:        "no-tmux",
				Usage:       "ignore @powerkit_* tmux options",
				Sources:     cli.EnvVars("POWERKIT_NO_TMUX"),
				Destination: &flags.NoTmux,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Stdout is the status line, so logs default to a file in the state dir.
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.StateDir, "powerkit.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.StateDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}

			exec := &executil.RealExecutor{}
			if cfg.TmuxOptions && !flags.NoTmux {
				applied, err := cfg.ApplyTmux(ctx, exec)
				if err != nil {
					return ctx, fmt.Errorf("apply tmux options: %w", err)
				}
				if len(applied) > 0 {
					log.Debug().Strs("options", applied).Msg("applied tmux options")
					if err := cfg.Validate(); err != nil {
						return ctx, fmt.Errorf("invalid tmux options: %w", err)
					}
				}
			}
			flags.Config = cfg

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.Theme)
			styles.SetTheme(palette)

			built, err := commands.NewApp(cfg, exec, clock.New(), flags.BaseArgs())
			if err != nil {
				return ctx, fmt.Errorf("setup: %w", err)
			}

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*powerkitApp = *built

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			var err error
			if powerkitApp.Store != nil {
				if err = powerkitApp.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close cache")
				}
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return err
		},
	}

	app = commands.NewRenderCmd(flags, powerkitApp).Register(app)
	app = commands.NewStatusCmd(flags, powerkitApp).Register(app)
	app = commands.NewRefreshCmd(flags, powerkitApp).Register(app)
	app = commands.NewCacheCmd(flags, powerkitApp).Register(app)
	app = commands.NewDoctorCmd(flags, powerkitApp).Register(app)
	app = commands.NewDaemonCmd(flags, powerkitApp).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
