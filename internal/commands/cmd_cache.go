package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/powerkit"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/iojson"
)

type CacheCmd struct {
	flags *Flags
	app   *App

	// flags
	format string
}

// NewCacheCmd creates a new cache command
func NewCacheCmd(flags *Flags, app *App) *CacheCmd {
	return &CacheCmd{flags: flags, app: app}
}

// Register adds the cache command to the application
func (cmd *CacheCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "cache",
		Usage: "Inspect and clear cached plugin records",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List cached records with their age",
				UsageText: "powerkit cache ls [--format text|json]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       formatText,
						Destination: &cmd.format,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "clear",
				Usage:     "Remove cached records",
				UsageText: "powerkit cache clear [prefix]",
				Description: `Removes every cached record whose plugin id starts with prefix, or all
records when no prefix is given. Plugins collect again on the next render.`,
				Action: cmd.runClear,
			},
		},
	})

	return app
}

type cacheEntryJSON struct {
	ID        string    `json:"id"`
	WriteTime time.Time `json:"write_time"`
	AgeSecs   float64   `json:"age_seconds"`
	Size      int       `json:"size"`
	Content   string    `json:"content,omitempty"`
	Stale     bool      `json:"stale"`
	Valid     bool      `json:"valid"`
}

func (cmd *CacheCmd) entries(ctx context.Context) ([]cacheEntryJSON, error) {
	store := cmd.app.Store
	keys, err := store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	sort.Strings(keys)

	now := store.Clock().Now()
	out := make([]cacheEntryJSON, 0, len(keys))
	for _, key := range keys {
		e, ok := store.Load(ctx, key)
		if !ok {
			continue
		}
		item := cacheEntryJSON{
			ID:        key,
			WriteTime: e.WriteTime,
			AgeSecs:   e.AgeAt(now).Seconds(),
			Size:      len(e.Value),
		}
		if rec, err := powerkit.DecodeRecord(string(e.Value)); err == nil {
			item.Content = rec.Content
			item.Stale = rec.Stale
			item.Valid = true
		}
		out = append(out, item)
	}
	return out, nil
}

func (cmd *CacheCmd) runList(ctx context.Context, c *cli.Command) error {
	entries, err := cmd.entries(ctx)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.format == formatJSON {
		return iojson.WriteWith(out, os.Stderr, entries)
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "Cache is empty")
		return nil
	}

	now := cmd.app.Store.Clock().Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tAGE\tSIZE\tSTALE\tCONTENT")
	for _, e := range entries {
		content := e.Content
		if !e.Valid {
			content = "(unreadable)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			e.ID,
			humanize.RelTime(e.WriteTime, now, "ago", "from now"),
			humanize.Bytes(uint64(e.Size)),
			e.Stale,
			content,
		)
	}
	return w.Flush()
}

func (cmd *CacheCmd) runClear(ctx context.Context, c *cli.Command) error {
	prefix := c.Args().First()
	if err := cmd.app.Store.InvalidatePrefix(ctx, prefix); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	if prefix == "" {
		_, _ = fmt.Fprintln(os.Stderr, "Cleared all cached records")
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "Cleared cached records matching %q\n", prefix)
	}
	return nil
}
