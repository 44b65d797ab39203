package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/powerkit"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/iojson"
)

type StatusCmd struct {
	flags *Flags
	app   *App

	// flags
	format string
	all    bool
}

// NewStatusCmd creates a new status command
func NewStatusCmd(flags *Flags, app *App) *StatusCmd {
	return &StatusCmd{flags: flags, app: app}
}

// Register adds the status command to the application
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Render every configured plugin",
		UsageText: "powerkit status [--format auto|wire|text|json] [--all]",
		Description: `Runs one processing cycle over the plugin list and prints each visible plugin
in list order.

The default format is styled text on a terminal and wire format otherwise.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (auto, wire, text, json)",
				Value:       formatAuto,
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "include hidden plugins",
				Destination: &cmd.all,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	pipe, err := cmd.app.Pipeline()
	if err != nil {
		return err
	}

	outs := pipe.RenderAll(ctx, plugins.NewWorkerPool(cmd.app.Config.Workers))
	if !cmd.all {
		outs = visibleOnly(outs)
	}

	w := c.Root().Writer
	switch resolveFormat(cmd.format, w) {
	case formatJSON:
		items := make([]powerkit.OutputView, len(outs))
		for i, o := range outs {
			items[i] = o.View()
		}
		return iojson.WriteWith(w, os.Stderr, items)
	case formatText:
		return writeText(w, outs)
	case formatWire:
		return writeWire(w, outs)
	default:
		return fmt.Errorf("unknown format %q", cmd.format)
	}
}

func visibleOnly(outs []powerkit.Output) []powerkit.Output {
	kept := outs[:0:0]
	for _, o := range outs {
		if !o.Hidden {
			kept = append(kept, o)
		}
	}
	return kept
}

// resolveFormat turns auto into text for terminals and wire otherwise.
func resolveFormat(format string, w any) string {
	if format != formatAuto {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return formatText
	}
	return formatWire
}
