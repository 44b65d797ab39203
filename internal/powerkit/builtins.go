package powerkit

import (
	"github.com/facebookgo/clock"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins/cpu"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins/datetime"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins/git"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins/hostname"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins/kubernetes"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins/memory"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

// RegisterBuiltins adds the bundled plugins to r.
func RegisterBuiltins(r *Registry, e executil.Executor, c clock.Clock) {
	r.Register("cpu", func() any { return cpu.New() })
	r.Register("memory", func() any { return memory.New() })
	r.Register("datetime", func() any { return datetime.New(c) })
	r.Register("hostname", func() any { return hostname.New() })
	r.Register("git", func() any { return git.New(e) })
	r.Register("kubernetes", func() any { return kubernetes.New() })
}
