package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/config"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/logging"
)

type RefreshCmd struct {
	flags *Flags
	app   *App

	// flags
	token string
}

// NewRefreshCmd creates a new refresh command
func NewRefreshCmd(flags *Flags, app *App) *RefreshCmd {
	return &RefreshCmd{flags: flags, app: app}
}

// Register adds the refresh command to the application
func (cmd *RefreshCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "refresh",
		Usage:     "Collect a plugin now and update the cache",
		UsageText: "powerkit refresh [--token TOKEN] <plugin-id>",
		Description: `Collects the plugin immediately, ignoring the age of its cached record.

With --token the command runs as a background refresh spawned by render: it
owns the refresh lock identified by the token and releases it when done.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "token",
				Usage:       "refresh lock token (set by the spawning process)",
				Destination: &cmd.token,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RefreshCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("plugin id is required")
	}
	ctx = logging.WithPluginID(ctx, id)

	// Spawned refreshes always coordinate through lock files: the lock was
	// taken by another process.
	pipe, err := cmd.app.PipelineWith(config.RefreshProcess)
	if err != nil {
		if cmd.token != "" {
			if rerr := cmd.app.FileLocker().Release(ctx, id, cmd.token); rerr != nil {
				log.Warn().Ctx(ctx).Err(rerr).Msg("failed to release refresh lock")
			}
		}
		return err
	}

	if cmd.token != "" {
		return pipe.Refresh(ctx, id, cmd.token)
	}

	rec, err := pipe.Collect(ctx, id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Root().Writer, rec.Encode())
	return err
}
