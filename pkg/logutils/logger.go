// Package logutils builds the zerolog logger used by the powerkit binary.
package logutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// New returns a logger that writes JSON lines to file.
//
// Stdout belongs to the tmux status line, so an empty file routes logs to
// stderr instead and "-" discards them entirely. The level parameter can be
// one of: trace, debug, info, warn, error, fatal, disabled.
func New(level string, file string) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var writer io.Writer
	switch file {
	case "":
		writer = os.Stderr
	case "-":
		writer = io.Discard
	default:
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}

		// Many short-lived processes share this file, so append rather than truncate.
		osFile, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, err
		}
		closer = func() { _ = osFile.Close() }
		writer = osFile
	}

	l := zerolog.New(writer).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger().
		Level(lvl)

	return l, closer, nil
}
