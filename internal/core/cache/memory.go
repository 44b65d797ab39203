package cache

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/kv"
)

// MemoryBackend keeps entries in process memory. It suits the daemon, where
// the cache only needs to outlive one cycle, and tests.
type MemoryBackend struct {
	entries *kv.Store[string, Entry]
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: kv.New[string, Entry]()}
}

func (b *MemoryBackend) Read(_ context.Context, key string) (Entry, error) {
	e, ok := b.entries.Get(key)
	if !ok {
		return Entry{}, fmt.Errorf("read %q: %w", key, ErrNotFound)
	}
	e.Value = slices.Clone(e.Value)
	return e, nil
}

func (b *MemoryBackend) Write(_ context.Context, e Entry) error {
	e.Value = slices.Clone(e.Value)
	b.entries.Set(e.Key, e)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.entries.Delete(key)
	return nil
}

func (b *MemoryBackend) DeletePrefix(_ context.Context, prefix string) error {
	b.entries.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
	return nil
}

func (b *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	return b.entries.Keys(), nil
}

func (b *MemoryBackend) Close() error { return nil }
