package doctor

import "context"

// Lifecycle values reported for plugins. They mirror the descriptor states
// of the pipeline without importing it.
const (
	PluginUnknown     = "unknown"
	PluginInvalid     = "invalid"
	PluginInitFailed  = "init_failed"
	PluginInitialized = "initialized"
)

// PluginInfo describes one configured plugin for doctor checks.
type PluginInfo struct {
	Name      string
	Lifecycle string
	Detail    string
}

// PluginCheck reports whether each configured plugin would render.
type PluginCheck struct {
	plugins []PluginInfo
}

// NewPluginCheck creates a new plugin check.
func NewPluginCheck(plugins []PluginInfo) *PluginCheck {
	return &PluginCheck{plugins: plugins}
}

func (c *PluginCheck) Name() string {
	return "Plugins"
}

func (c *PluginCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if len(c.plugins) == 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "No plugins",
			Status: StatusWarn,
			Detail: "plugin list is empty",
		})
		return result
	}

	for _, p := range c.plugins {
		item := CheckItem{Label: p.Name, Detail: p.Detail}
		switch p.Lifecycle {
		case PluginUnknown:
			item.Status = StatusFail
			if item.Detail == "" {
				item.Detail = "unknown plugin"
			}
		case PluginInvalid:
			item.Status = StatusFail
			if item.Detail == "" {
				item.Detail = "does not implement the plugin contract"
			}
		case PluginInitFailed:
			item.Status = StatusWarn
			if item.Detail == "" {
				item.Detail = "hidden (missing dependencies)"
			}
		default:
			item.Status = StatusPass
		}
		result.Items = append(result.Items, item)
	}

	return result
}
