package commands

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	StateDir   string
	NoTmux     bool

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// BaseArgs returns the global flags a spawned refresh process needs to see
// the same configuration as its parent.
func (f *Flags) BaseArgs() []string {
	args := []string{
		"--config", f.ConfigPath,
		"--state-dir", f.StateDir,
		"--log-level", f.LogLevel,
	}
	if f.LogFile != "" {
		args = append(args, "--log-file", f.LogFile)
	}
	if f.NoTmux {
		args = append(args, "--no-tmux")
	}
	return args
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "powerkit", "config.yaml")
}

// DefaultStateDir returns the directory for cache entries, locks and logs.
// On macOS: ~/Library/Caches/powerkit
// On Linux: $XDG_STATE_HOME/powerkit (defaults to ~/.local/state/powerkit)
func DefaultStateDir() string {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "powerkit")
	}

	home, _ := os.UserHomeDir()

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Caches", "powerkit")
	}

	return filepath.Join(home, ".local", "state", "powerkit")
}
