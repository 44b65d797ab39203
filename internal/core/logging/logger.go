// Package logging holds zerolog helpers shared by the pipeline components.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component creates a logger tagged with a component name under "cmp".
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
