package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisFieldValue     = "value"
	redisFieldWrittenAt = "written_at"
)

// RedisBackend stores each entry as a hash holding the value and its write
// time. HSET with both fields is a single command, so readers never see one
// field without the other.
type RedisBackend struct {
	client    *redis.Client
	namespace string
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend connects to addr. Every key is stored under namespace.
func NewRedisBackend(addr, namespace string) *RedisBackend {
	return &RedisBackend{
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		namespace: namespace,
	}
}

func (b *RedisBackend) key(k string) string {
	return b.namespace + k
}

func (b *RedisBackend) Read(ctx context.Context, key string) (Entry, error) {
	fields, err := b.client.HGetAll(ctx, b.key(key)).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("read %q: %w", key, err)
	}
	raw, ok := fields[redisFieldWrittenAt]
	if !ok {
		return Entry{}, fmt.Errorf("read %q: %w", key, ErrNotFound)
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("decode %q written_at: %w", key, err)
	}
	return Entry{Key: key, Value: []byte(fields[redisFieldValue]), WriteTime: time.Unix(0, nanos)}, nil
}

func (b *RedisBackend) Write(ctx context.Context, e Entry) error {
	err := b.client.HSet(ctx, b.key(e.Key),
		redisFieldValue, e.Value,
		redisFieldWrittenAt, strconv.FormatInt(e.WriteTime.UnixNano(), 10),
	).Err()
	if err != nil {
		return fmt.Errorf("write %q: %w", e.Key, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := b.scan(ctx, b.key(escapeGlob(prefix))+"*")
	if err != nil {
		return fmt.Errorf("delete prefix %q: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete prefix %q: %w", prefix, err)
	}
	return nil
}

func (b *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	keys, err := b.scan(ctx, escapeGlob(b.namespace)+"*")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, b.namespace)
	}
	return keys, nil
}

func (b *RedisBackend) scan(ctx context.Context, match string) ([]string, error) {
	var out []string
	iter := b.client.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	return out, iter.Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// escapeGlob escapes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
