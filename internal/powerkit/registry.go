package powerkit

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/logging"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins/literal"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

// Factory builds a new, unconfigured plugin implementation. It returns any
// because conformance to the contract is checked by Validate, not assumed.
type Factory func() any

// Registry maps plugin names to factories and turns plugin list strings into
// descriptors.
type Registry struct {
	factories map[string]Factory
	exec      executil.Executor
	log       zerolog.Logger
}

// NewRegistry creates an empty registry. Literal plugins run their commands
// through e.
func NewRegistry(e executil.Executor) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		exec:      e,
		log:       logging.Component("registry"),
	}
}

// Register adds a named factory, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Discover parses a comma separated plugin list. Entries are plugin names,
// group(a,b,...) to group names visually, or external("icon"|"content"|"ttl")
// for an inline plugin. Unknown names and malformed entries are skipped and
// reported; they never abort discovery. Repeated ids keep the first entry.
func (r *Registry) Discover(list string) ([]*Descriptor, []error) {
	var (
		out      []*Descriptor
		errs     []error
		seen     = make(map[string]bool)
		literals int
		groups   int
	)

	var add func(entry, group string)
	add = func(entry, group string) {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
			return

		case hasCall(entry, "group"):
			groups++
			name := "group" + strconv.Itoa(groups)
			for _, inner := range splitTopLevel(callArgs(entry, "group"), ',') {
				add(inner, name)
			}
			return

		case hasCall(entry, "external"):
			literals++
			lit, err := parseLiteral(callArgs(entry, "external"))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w: %w", entry, ErrDiscoveryMiss, err))
				r.log.Warn().Err(err).Str("entry", entry).Msg("skipping malformed external plugin")
				return
			}
			id := "external_" + strconv.Itoa(literals)
			seen[id] = true
			out = append(out, &Descriptor{ID: id, Source: Source{Literal: &lit}, Group: group, State: StateDiscovered})
			return
		}

		if _, ok := r.factories[entry]; !ok {
			errs = append(errs, fmt.Errorf("%q: %w", entry, ErrDiscoveryMiss))
			r.log.Warn().Str("plugin", entry).Msg("unknown plugin, skipping")
			return
		}
		if seen[entry] {
			r.log.Debug().Str("plugin", entry).Msg("duplicate plugin entry ignored")
			return
		}
		seen[entry] = true
		out = append(out, &Descriptor{ID: entry, Source: Source{Ref: entry}, Group: group, State: StateDiscovered})
	}

	for _, entry := range splitTopLevel(list, ',') {
		add(entry, "")
	}
	return out, errs
}

// load instantiates the descriptor's implementation.
func (r *Registry) load(d *Descriptor) (any, error) {
	if lit := d.Source.Literal; lit != nil {
		return literal.New(r.exec, lit.Icon, lit.Content, lit.TTL), nil
	}
	f, ok := r.factories[d.Source.Ref]
	if !ok {
		return nil, fmt.Errorf("%q: %w", d.Source.Ref, ErrDiscoveryMiss)
	}
	return f(), nil
}

// MissingOperations lists the mandatory operations impl does not provide.
func MissingOperations(impl any) []string {
	var missing []string
	if _, ok := impl.(plugins.ContentTyper); !ok {
		missing = append(missing, "ContentType")
	}
	if _, ok := impl.(plugins.Presencer); !ok {
		missing = append(missing, "Presence")
	}
	if _, ok := impl.(plugins.Stater); !ok {
		missing = append(missing, "State")
	}
	if _, ok := impl.(plugins.Collector); !ok {
		missing = append(missing, "Collect")
	}
	if _, ok := impl.(plugins.Renderer); !ok {
		missing = append(missing, "Render")
	}
	return missing
}

func hasCall(entry, name string) bool {
	return strings.HasPrefix(entry, name+"(") && strings.HasSuffix(entry, ")")
}

func callArgs(entry, name string) string {
	return entry[len(name)+1 : len(entry)-1]
}

// splitTopLevel splits s on sep, ignoring separators inside parentheses or
// double quotes.
func splitTopLevel(s string, sep rune) []string {
	var (
		parts   []string
		depth   int
		inQuote bool
		start   int
	)
	for i, c := range s {
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// parseLiteral reads "icon"|"content"|"ttl". Quotes are optional; the TTL
// is in seconds and may be omitted.
func parseLiteral(args string) (Literal, error) {
	fields := splitTopLevel(args, '|')
	for i, f := range fields {
		fields[i] = strings.Trim(strings.TrimSpace(f), `"`)
	}
	if len(fields) < 2 {
		return Literal{}, fmt.Errorf("want at least icon and content, got %d fields", len(fields))
	}

	lit := Literal{Icon: fields[0], Content: fields[1]}
	if len(fields) >= 3 && fields[len(fields)-1] != "" {
		secs, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || secs < 0 {
			return Literal{}, fmt.Errorf("bad ttl %q", fields[len(fields)-1])
		}
		lit.TTL = time.Duration(secs) * time.Second
	}
	return lit, nil
}
