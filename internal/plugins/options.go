package plugins

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Option is one declared plugin option.
type Option struct {
	Name    string
	Default string
	Help    string
}

// Options holds declared plugin options and the values configured for them.
// Lookups of names that were never declared return the zero value.
type Options struct {
	values   map[string]string
	declared map[string]Option
}

// NewOptions creates an option set over configured values. Values are
// converted to strings so YAML scalars and tmux option strings read alike.
func NewOptions(values map[string]any) *Options {
	o := &Options{
		values:   make(map[string]string, len(values)),
		declared: make(map[string]Option),
	}
	for k, v := range values {
		o.values[k] = fmt.Sprint(v)
	}
	return o
}

// Declare registers an option with its default value.
func (o *Options) Declare(name, def, help string) {
	o.declared[name] = Option{Name: name, Default: def, Help: help}
}

// Declared returns every declared option sorted by name.
func (o *Options) Declared() []Option {
	out := make([]Option, 0, len(o.declared))
	for _, opt := range o.declared {
		out = append(out, opt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Undeclared returns configured option names the plugin never declared.
func (o *Options) Undeclared() []string {
	var out []string
	for k := range o.values {
		if _, ok := o.declared[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// String returns the configured value, or the declared default.
func (o *Options) String(name string) string {
	opt, ok := o.declared[name]
	if !ok {
		return ""
	}
	if v, ok := o.values[name]; ok {
		return v
	}
	return opt.Default
}

// Int parses the option as an integer, falling back to the default when the
// configured value does not parse.
func (o *Options) Int(name string) int {
	if n, err := strconv.Atoi(o.String(name)); err == nil {
		return n
	}
	n, _ := strconv.Atoi(o.declared[name].Default)
	return n
}

// Float parses the option as a float with the same fallback as Int.
func (o *Options) Float(name string) float64 {
	if f, err := strconv.ParseFloat(o.String(name), 64); err == nil {
		return f
	}
	f, _ := strconv.ParseFloat(o.declared[name].Default, 64)
	return f
}

// Bool parses the option as a boolean with the same fallback as Int.
func (o *Options) Bool(name string) bool {
	if b, err := strconv.ParseBool(o.String(name)); err == nil {
		return b
	}
	b, _ := strconv.ParseBool(o.declared[name].Default)
	return b
}

// Duration parses the option as a Go duration with the same fallback as Int.
func (o *Options) Duration(name string) time.Duration {
	if d, err := time.ParseDuration(o.String(name)); err == nil {
		return d
	}
	d, _ := time.ParseDuration(o.declared[name].Default)
	return d
}
