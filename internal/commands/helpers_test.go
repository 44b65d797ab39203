package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/config"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

// staticPlugin always renders the same content.
type staticPlugin struct {
	content string
	depsMet bool
}

func (p *staticPlugin) ContentType() plugins.ContentType           { return plugins.ContentStatic }
func (p *staticPlugin) Presence() plugins.Presence                 { return plugins.PresenceAlways }
func (p *staticPlugin) State() plugins.State                       { return plugins.StateActive }
func (p *staticPlugin) Collect(context.Context) error              { return nil }
func (p *staticPlugin) Render() string                             { return p.content }
func (p *staticPlugin) Icon() string                               { return "S" }
func (p *staticPlugin) CheckDependencies(ctx context.Context) bool { return p.depsMet }

type testEnv struct {
	app   *App
	flags *Flags
	clock *clock.Mock
}

// newTestEnv builds an App over an in-memory cache with two test plugins
// registered: "static" and "nodeps", which never passes its dependency check.
func newTestEnv(t *testing.T, list string) *testEnv {
	t.Helper()

	cfg, err := config.Load("", t.TempDir())
	require.NoError(t, err)
	cfg.Plugins = list
	cfg.Cache.Backend = config.BackendMemory
	cfg.LazyLoading = false
	cfg.TmuxOptions = false

	mock := clock.NewMock()
	mock.Set(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	app, err := NewApp(cfg, &executil.RecordingExecutor{}, mock, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	app.Registry.Register("static", func() any { return &staticPlugin{content: "hello", depsMet: true} })
	app.Registry.Register("nodeps", func() any { return &staticPlugin{content: "never"} })

	return &testEnv{
		app:   app,
		flags: &Flags{Config: cfg},
		clock: mock,
	}
}

type registrar interface {
	Register(app *cli.Command) *cli.Command
}

// run executes one command against a fresh root and returns what it wrote
// to the root writer.
func run(t *testing.T, cmd registrar, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	root := &cli.Command{
		Name:           "powerkit",
		Writer:         &buf,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
	root = cmd.Register(root)

	err := root.Run(context.Background(), append([]string{"powerkit"}, args...))
	return buf.String(), err
}
