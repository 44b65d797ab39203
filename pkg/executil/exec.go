// Package executil provides shell execution utilities for plugins and the
// background refresh spawner.
package executil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const maxStderrLen = 500

// limitedWriter caps writes to a bytes.Buffer at a maximum byte count.
// Bytes beyond the limit are silently discarded.
type limitedWriter struct {
	buf *bytes.Buffer
	n   int64
	max int64
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.n >= w.max {
		return len(p), nil
	}
	remaining := w.max - w.n
	origLen := len(p)
	if int64(origLen) > remaining {
		p = p[:remaining]
	}
	n, err := w.buf.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, err
	}
	return origLen, nil
}

// Executor runs external commands.
type Executor interface {
	// Run executes a command and returns its stdout.
	Run(ctx context.Context, cmd string, args ...string) ([]byte, error)
	// RunDir executes a command in a specific directory.
	RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error)
}

// RealExecutor calls actual commands.
type RealExecutor struct{}

// Run executes a command and returns its stdout.
func (e *RealExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	out, err := output(exec.CommandContext(ctx, cmd, args...))
	if err != nil {
		return out, fmt.Errorf("exec %s: %w", cmd, err)
	}
	return out, nil
}

// RunDir executes a command in a specific directory.
func (e *RealExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	c.Dir = dir
	out, err := output(c)
	if err != nil {
		return out, fmt.Errorf("exec %s in %s: %w", cmd, dir, err)
	}
	return out, nil
}

// output runs c and returns its stdout. On failure stderr becomes part of
// the error message, capped at 500 bytes so ANSI-heavy output never reaches
// logs in bulk. The original *exec.ExitError stays reachable through
// errors.As.
func output(c *exec.Cmd) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &limitedWriter{buf: &stderr, max: maxStderrLen}
	if err := c.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w", msg, err)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// StartDetached starts name with args in its own session so it outlives the
// caller, and returns without waiting. The child's stdio is not connected.
func StartDetached(name string, args []string, env []string) (int, error) {
	c := exec.Command(name, args...)
	c.Env = env
	c.Stdin = nil
	c.Stdout = nil
	c.Stderr = nil
	detach(c)

	if err := c.Start(); err != nil {
		return 0, fmt.Errorf("start detached %s: %w", name, err)
	}
	pid := c.Process.Pid

	// Nothing waits on the child; release its handle so no zombie bookkeeping
	// stays on this side.
	_ = c.Process.Release()
	return pid, nil
}
