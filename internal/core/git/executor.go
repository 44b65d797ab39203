package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

// Executor implements Git using the git command-line tool.
type Executor struct {
	gitPath string
	exec    executil.Executor
}

var _ Git = (*Executor)(nil)

// NewExecutor creates a new git executor with the specified git binary path.
func NewExecutor(gitPath string, exec executil.Executor) *Executor {
	if gitPath == "" {
		gitPath = "git"
	}
	return &Executor{gitPath: gitPath, exec: exec}
}

func (e *Executor) InsideWorkTree(ctx context.Context, dir string) bool {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

func (e *Executor) Branch(ctx context.Context, dir string) (string, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("git branch: %w", err)
	}

	branch := strings.TrimSpace(string(out))
	if branch != "" {
		return branch, nil
	}

	// Empty branch name means detached HEAD - get short commit SHA
	out, err = e.exec.RunDir(ctx, dir, e.gitPath, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}

	return strings.TrimSpace(string(out)), nil
}

func (e *Executor) ChangedPaths(ctx context.Context, dir string) (int, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "status", "--porcelain")
	if err != nil {
		return 0, fmt.Errorf("git status: %w", err)
	}

	n := 0
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n, nil
}

func (e *Executor) DiffStats(ctx context.Context, dir string) (additions, deletions int, err error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "diff", "--shortstat", "HEAD")
	if err != nil {
		return 0, 0, fmt.Errorf("git diff: %w", err)
	}

	return parseDiffStats(string(out))
}

// parseDiffStats parses git diff --shortstat output.
// Example: " 3 files changed, 10 insertions(+), 5 deletions(-)"
func parseDiffStats(output string) (additions, deletions int, err error) {
	for _, part := range strings.Split(strings.TrimSpace(output), ",") {
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}

		n, convErr := strconv.Atoi(fields[0])
		if convErr != nil {
			return 0, 0, fmt.Errorf("parse diff stats %q: %w", part, convErr)
		}

		switch {
		case strings.HasPrefix(fields[1], "insertion"):
			additions = n
		case strings.HasPrefix(fields[1], "deletion"):
			deletions = n
		}
	}
	return additions, deletions, nil
}
