package commands

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCache(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.app.Store.Set(ctx, "cpu", []byte("C\x1f12%\x1factive\x1fgood\x1f0")))
	require.NoError(t, env.app.Store.Set(ctx, "cpu_temp", []byte("T\x1f48C\x1factive\x1fok\x1f1")))
	require.NoError(t, env.app.Store.Set(ctx, "garbage", []byte("not a record")))
}

func TestCacheCmd_List(t *testing.T) {
	env := newTestEnv(t, "static")
	seedCache(t, env)
	env.clock.Add(90 * time.Second)

	out, err := run(t, NewCacheCmd(env.flags, env.app), "cache", "ls")
	require.NoError(t, err)

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "12%")
	assert.Contains(t, out, "48C")
	assert.Contains(t, out, "(unreadable)")
	assert.Contains(t, out, "1 minute ago")
}

func TestCacheCmd_ListJSON(t *testing.T) {
	env := newTestEnv(t, "static")
	seedCache(t, env)
	env.clock.Add(10 * time.Second)

	out, err := run(t, NewCacheCmd(env.flags, env.app), "cache", "ls", "--format", "json")
	require.NoError(t, err)

	var got []cacheEntryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 3)

	assert.Equal(t, "cpu", got[0].ID)
	assert.InDelta(t, 10, got[0].AgeSecs, 0.001)
	assert.True(t, got[0].Valid)
	assert.False(t, got[0].Stale)

	assert.Equal(t, "cpu_temp", got[1].ID)
	assert.True(t, got[1].Stale)

	assert.Equal(t, "garbage", got[2].ID)
	assert.False(t, got[2].Valid)
	assert.Empty(t, got[2].Content)
}

func TestCacheCmd_Clear(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "prefix", args: []string{"cache", "clear", "cpu"}, want: []string{"garbage"}},
		{name: "everything", args: []string{"cache", "clear"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "static")
			seedCache(t, env)

			_, err := run(t, NewCacheCmd(env.flags, env.app), tt.args...)
			require.NoError(t, err)

			keys, err := env.app.Store.Keys(context.Background())
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, keys)
		})
	}
}
