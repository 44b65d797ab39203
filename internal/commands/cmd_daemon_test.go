package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestDaemonCmd_StopsWithContext(t *testing.T) {
	env := newTestEnv(t, "static")

	var buf bytes.Buffer
	root := &cli.Command{Name: "powerkit", Writer: &buf}
	root = NewDaemonCmd(env.flags, env.app).Register(root)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- root.Run(ctx, []string{"powerkit", "daemon", "--addr", "127.0.0.1:0", "--interval", "1s"})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop after its context ended")
	}

	// The initial cycle warms the cache before the first interval.
	_, ok := env.app.Store.Load(context.Background(), "static")
	assert.True(t, ok)
}
