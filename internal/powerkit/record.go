package powerkit

import (
	"fmt"
	"strings"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

const (
	// Hidden is emitted instead of a record when a plugin has no output this cycle.
	Hidden = "HIDDEN"

	fieldSep    = "\x1f"
	recordField = 5
)

// Record is the normalized output of one plugin evaluation.
type Record struct {
	Icon    string
	Content string
	State   plugins.State
	Health  plugins.Health
	Stale   bool
}

// Encode returns the five-field wire form: icon, content, state, health and
// stale (0 or 1) joined by the ASCII unit separator.
func (r Record) Encode() string {
	stale := "0"
	if r.Stale {
		stale = "1"
	}
	return strings.Join([]string{
		cleanField(r.Icon),
		cleanField(r.Content),
		string(r.State),
		string(r.Health),
		stale,
	}, fieldSep)
}

// DecodeRecord parses the wire form. Anything other than exactly five valid
// fields, including the Hidden sentinel, is reported as ErrCacheMiss.
func DecodeRecord(s string) (Record, error) {
	fields := strings.Split(s, fieldSep)
	if len(fields) != recordField {
		return Record{}, fmt.Errorf("decode record: %d fields: %w", len(fields), ErrCacheMiss)
	}

	state, err := plugins.ParseState(fields[2])
	if err != nil {
		return Record{}, fmt.Errorf("decode record: %w: %w", err, ErrCacheMiss)
	}
	health, err := plugins.ParseHealth(fields[3])
	if err != nil {
		return Record{}, fmt.Errorf("decode record: %w: %w", err, ErrCacheMiss)
	}

	var stale bool
	switch fields[4] {
	case "0":
	case "1":
		stale = true
	default:
		return Record{}, fmt.Errorf("decode record: stale flag %q: %w", fields[4], ErrCacheMiss)
	}

	return Record{
		Icon:    fields[0],
		Content: fields[1],
		State:   state,
		Health:  health,
		Stale:   stale,
	}, nil
}

// Visible applies the visibility rule for a plugin with the given presence.
func (r Record) Visible(presence plugins.Presence) bool {
	switch presence {
	case plugins.PresenceHidden:
		return false
	case plugins.PresenceConditional:
		return r.State != plugins.StateInactive
	}
	return true
}

// cleanField strips the separator and line breaks, which would otherwise
// split the record or the status line.
func cleanField(s string) string {
	if !strings.ContainsAny(s, fieldSep+"\n\r") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '\x1f':
			return -1
		case '\n', '\r':
			return ' '
		}
		return r
	}, s)
}
