package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/config"
)

// ConfigCheck validates the loaded configuration and reports its warnings.
type ConfigCheck struct {
	cfg  *config.Config
	path string
}

// NewConfigCheck creates a config check for cfg loaded from path.
func NewConfigCheck(cfg *config.Config, path string) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, path: path}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if err := c.cfg.ValidateDeep(c.path); err != nil {
		var fieldErrs criterio.FieldErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				result.Items = append(result.Items, CheckItem{
					Label:  fe.Field,
					Status: StatusFail,
					Detail: fe.Err.Error(),
				})
			}
		} else {
			result.Items = append(result.Items, CheckItem{
				Label:  "Validation",
				Status: StatusFail,
				Detail: err.Error(),
			})
		}
	}

	for _, w := range c.cfg.Warnings() {
		result.Items = append(result.Items, CheckItem{
			Label:  fmt.Sprintf("%s: %s", w.Category, w.Item),
			Status: StatusWarn,
			Detail: w.Message,
		})
	}

	if len(result.Items) == 0 {
		detail := c.path
		if detail == "" {
			detail = "defaults"
		}
		result.Items = append(result.Items, CheckItem{
			Label:  "Config valid",
			Status: StatusPass,
			Detail: detail,
		})
	}

	return result
}
