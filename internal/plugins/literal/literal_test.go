package literal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/executil"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "$(uptime -p)", want: "uptime -p", wantOK: true},
		{in: "#( date )", want: "date", wantOK: true},
		{in: "plain text", wantOK: false},
		{in: "$(unterminated", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := Command(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestPlugin_Constant(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	p := New(rec, "@", "hello", 0)

	require.NoError(t, p.Collect(context.Background()))

	assert.Equal(t, plugins.ContentStatic, p.ContentType())
	assert.Equal(t, plugins.StateActive, p.State())
	assert.Equal(t, "hello", p.Render())
	assert.Equal(t, "@", p.Icon())
	assert.Empty(t, rec.Calls())
}

func TestPlugin_Command(t *testing.T) {
	rec := &executil.RecordingExecutor{Outputs: map[string][]byte{
		"sh -c uptime -p": []byte("up 3 days\n"),
	}}
	p := New(rec, "", "$(uptime -p)", 30*time.Second)

	require.NoError(t, p.Collect(context.Background()))

	assert.Equal(t, plugins.ContentDynamic, p.ContentType())
	assert.Equal(t, "up 3 days", p.Render())
	assert.Equal(t, 30*time.Second, p.DefaultTTL())
}

func TestPlugin_CommandFails(t *testing.T) {
	rec := &executil.RecordingExecutor{Errors: map[string]error{"sh": errors.New("exit status 1")}}
	p := New(rec, "", "$(false)", 0)

	assert.Error(t, p.Collect(context.Background()))
}

func TestPlugin_EmptyOutputIsInactive(t *testing.T) {
	p := New(&executil.RecordingExecutor{}, "", "$(true)", 0)

	require.NoError(t, p.Collect(context.Background()))
	assert.Equal(t, plugins.StateInactive, p.State())
}
