package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook copies the plugin id and cycle id from an event's context onto
// the event.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if id := GetPluginID(ctx); id != "" {
		e.Str("plugin", id)
	}

	if cycle := GetCycle(ctx); cycle != "" {
		e.Str("cycle", cycle)
	}
}
