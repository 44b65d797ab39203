// Package git provides an abstraction for the read-only git queries the
// status line needs.
package git

import "context"

// Git defines the working tree queries used by the git plugin.
type Git interface {
	// InsideWorkTree reports whether dir is inside a git working tree.
	InsideWorkTree(ctx context.Context, dir string) bool
	// Branch returns the current branch name, or short commit SHA if in detached HEAD state.
	Branch(ctx context.Context, dir string) (string, error)
	// ChangedPaths returns the number of paths with staged, unstaged or untracked changes.
	ChangedPaths(ctx context.Context, dir string) (int, error)
	// DiffStats returns the number of lines added and deleted compared to HEAD.
	DiffStats(ctx context.Context, dir string) (additions, deletions int, err error)
}
