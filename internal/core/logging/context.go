package logging

import "context"

type contextKey string

const (
	pluginIDKey contextKey = "plugin"
	cycleKey    contextKey = "cycle"
)

// WithPluginID adds a plugin id to the context.
func WithPluginID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, pluginIDKey, id)
}

// WithCycle adds a processing cycle id to the context.
func WithCycle(ctx context.Context, cycle string) context.Context {
	return context.WithValue(ctx, cycleKey, cycle)
}

// GetPluginID retrieves the plugin id from the context.
// Returns empty string if not present.
func GetPluginID(ctx context.Context) string {
	if id, ok := ctx.Value(pluginIDKey).(string); ok {
		return id
	}
	return ""
}

// GetCycle retrieves the cycle id from the context.
// Returns empty string if not present.
func GetCycle(ctx context.Context) string {
	if c, ok := ctx.Value(cycleKey).(string); ok {
		return c
	}
	return ""
}
