package doctor

import (
	"context"
	"os/exec"
)

// lookPathFunc is the function used to find executables on PATH.
// Package-level variable to allow test overrides.
var lookPathFunc = exec.LookPath

// Tool is an external program the configured plugins rely on.
type Tool struct {
	Name     string
	Required bool
	Purpose  string
}

// ToolsCheck verifies that external tools are available on $PATH.
type ToolsCheck struct {
	tools []Tool
}

// NewToolsCheck creates a new tools check.
func NewToolsCheck(tools []Tool) *ToolsCheck {
	return &ToolsCheck{tools: tools}
}

func (c *ToolsCheck) Name() string {
	return "Tools"
}

func (c *ToolsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	for _, tool := range c.tools {
		path, err := lookPathFunc(tool.Name)
		switch {
		case err == nil:
			result.Items = append(result.Items, CheckItem{
				Label:  tool.Name,
				Status: StatusPass,
				Detail: path,
			})
		case tool.Required:
			result.Items = append(result.Items, CheckItem{
				Label:  tool.Name,
				Status: StatusFail,
				Detail: "not found on PATH",
			})
		default:
			detail := "not found on PATH"
			if tool.Purpose != "" {
				detail += " (needed for " + tool.Purpose + ")"
			}
			result.Items = append(result.Items, CheckItem{
				Label:  tool.Name,
				Status: StatusWarn,
				Detail: detail,
			})
		}
	}

	return result
}
