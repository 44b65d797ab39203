package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/powerkit"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/iojson"
)

type RenderCmd struct {
	flags *Flags
	app   *App

	// flags
	format string
}

// NewRenderCmd creates a new render command
func NewRenderCmd(flags *Flags, app *App) *RenderCmd {
	return &RenderCmd{flags: flags, app: app}
}

// Register adds the render command to the application
func (cmd *RenderCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "render",
		Usage:     "Print the render record for one plugin",
		UsageText: "powerkit render [--format wire|json] <plugin-id>",
		Description: `Prints the record a status line segment should show for the plugin, or HIDDEN.

Cached records are served while fresh. Within the stale window the cached
record is printed and a background refresh is started. Otherwise the plugin
is collected before printing.

Intended for tmux format strings such as #(powerkit render cpu).`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (wire, json)",
				Value:       formatWire,
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RenderCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("plugin id is required")
	}

	pipe, err := cmd.app.Pipeline()
	if err != nil {
		return err
	}

	out, err := pipe.Render(ctx, id)
	if err != nil {
		if !errors.Is(err, powerkit.ErrDiscoveryMiss) {
			return err
		}
		// The status line keeps working when a segment names a plugin
		// that is not in the list.
		log.Warn().Err(err).Msg("render requested for unlisted plugin")
		out = powerkit.Output{ID: id, Hidden: true, Tier: powerkit.TierExcluded}
	}

	w := c.Root().Writer
	if cmd.format == formatJSON {
		return iojson.WriteWith(w, os.Stderr, out.View())
	}
	_, err = fmt.Fprintln(w, out.String())
	return err
}
