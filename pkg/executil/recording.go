package executil

import (
	"context"
	"strings"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir  string
	Cmd  string
	Args []string
}

// Line returns the command and its arguments joined by spaces.
func (r RecordedCommand) Line() string {
	return strings.TrimSpace(r.Cmd + " " + strings.Join(r.Args, " "))
}

// RecordingExecutor captures commands for testing.
// Configure Outputs and Errors maps to control return values. Keys are either
// the full command line ("git rev-parse --abbrev-ref HEAD") or just the
// command name ("git"); the full line wins when both are present.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	Outputs map[string][]byte
	Errors  map[string]error
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.record("", cmd, args...)
}

// RunDir records the command with directory and returns configured output/error.
func (e *RecordingExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.record(dir, cmd, args...)
}

func (e *RecordingExecutor) record(dir, cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rc := RecordedCommand{Dir: dir, Cmd: cmd, Args: args}
	e.Commands = append(e.Commands, rc)

	line := rc.Line()
	return lookup(e.Outputs, line, cmd), lookup(e.Errors, line, cmd)
}

func lookup[V any](m map[string]V, line, cmd string) V {
	var zero V
	if m == nil {
		return zero
	}
	if v, ok := m[line]; ok {
		return v
	}
	return m[cmd]
}

// Calls returns a snapshot of the recorded commands.
func (e *RecordingExecutor) Calls() []RecordedCommand {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RecordedCommand, len(e.Commands))
	copy(out, e.Commands)
	return out
}
