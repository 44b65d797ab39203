// Command docgen generates CLI reference documentation from the powerkit
// command definitions. Output is written to docs/cli-reference.md.
package main

import (
	"fmt"
	"os"

	docs "github.com/urfave/cli-docs/v3"
	"github.com/urfave/cli/v3"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/commands"
)

func main() {
	flags := &commands.Flags{}
	app := &commands.App{}

	root := &cli.Command{
		Name:      "powerkit",
		Usage:     "Render tmux status line segments from cached plugin data",
		UsageText: "powerkit [global options] command [command options]",
		Description: `Powerkit collects status line data from plugins (cpu, memory, git, ...) and
serves it to tmux through a TTL cache.

Renders never wait on a stale plugin: the cached record is shown while a
single background refresh updates it. Run 'powerkit daemon' to keep the
cache warm, or let renders refresh lazily on demand.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (trace, debug, info, warn, error, disabled)",
				Sources: cli.EnvVars("POWERKIT_LOG_LEVEL"),
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "path to log file (defaults to <state-dir>/powerkit.log, - discards)",
				Sources: cli.EnvVars("POWERKIT_LOG_FILE"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Sources: cli.EnvVars("POWERKIT_CONFIG"),
				Value:   commands.DefaultConfigPath(),
			},
			&cli.StringFlag{
				Name:    "state-dir",
				Usage:   "path to cache, lock and log directory",
				Sources: cli.EnvVars("POWERKIT_STATE_DIR"),
				Value:   commands.DefaultStateDir(),
			},
			&cli.BoolFlag{
				Name:    "no-tmux",
				Usage:   "ignore @powerkit_* tmux options",
				Sources: cli.EnvVars("POWERKIT_NO_TMUX"),
			},
		},
	}

	root = commands.NewRenderCmd(flags, app).Register(root)
	root = commands.NewStatusCmd(flags, app).Register(root)
	root = commands.NewRefreshCmd(flags, app).Register(root)
	root = commands.NewCacheCmd(flags, app).Register(root)
	root = commands.NewDoctorCmd(flags, app).Register(root)
	root = commands.NewDaemonCmd(flags, app).Register(root)

	md, err := docs.ToMarkdown(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating docs: %v\n", err)
		os.Exit(1)
	}

	outPath := "docs/cli-reference.md"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.WriteFile(outPath, []byte(md), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outPath)
}
