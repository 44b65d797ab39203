package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/styles"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/powerkit"
)

// Output formats shared by render and status.
const (
	formatAuto = "auto"
	formatWire = "wire"
	formatText = "text"
	formatJSON = "json"
)

// writeWire prints one line per output: the id, a tab, then the encoded
// record or the hidden sentinel.
func writeWire(w io.Writer, outs []powerkit.Output) error {
	for _, o := range outs {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", o.ID, o.String()); err != nil {
			return err
		}
	}
	return nil
}

// writeText prints a styled line per output for a terminal.
func writeText(w io.Writer, outs []powerkit.Output) error {
	for _, o := range outs {
		var b strings.Builder
		b.WriteString(styles.LabelStyle.Render(o.ID))
		if o.Hidden {
			b.WriteString(styles.MutedStyle.Render("hidden"))
		} else {
			if o.Record.Icon != "" {
				b.WriteString(styles.IconStyle.Render(o.Record.Icon) + " ")
			}
			b.WriteString(styles.ForHealth(string(o.Record.Health)).Render(o.Record.Content))
			if o.Record.Stale {
				b.WriteString(" " + styles.StaleStyle.Render(styles.IconStale))
			}
		}
		b.WriteString("  " + styles.MutedStyle.Render(string(o.Tier)))
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}
