// Package cache implements the plugin cache store: opaque values keyed by
// plugin id, with freshness derived from each entry's last write time.
//
// The store never interprets TTLs beyond a plain hit/miss check. Staleness
// tiers are the caller's concern.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/kv"
)

// ErrNotFound is returned by backends when a key has no entry.
var ErrNotFound = errors.New("cache entry not found")

// Entry is one cached value with the time it was last written.
type Entry struct {
	Key       string
	Value     []byte
	WriteTime time.Time
}

// AgeAt returns how old the entry is at now. It can be negative when the
// entry was written by a host whose clock runs ahead.
func (e Entry) AgeAt(now time.Time) time.Duration {
	return now.Sub(e.WriteTime)
}

// Backend persists entries. Writes must replace a whole entry atomically so
// readers never observe a partially written value.
type Backend interface {
	Read(ctx context.Context, key string) (Entry, error)
	Write(ctx context.Context, e Entry) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

type memoKey struct {
	key string
	ttl time.Duration
}

// loadTTL marks memoized Load results, which carry no TTL.
const loadTTL time.Duration = -1

type memoResult struct {
	entry Entry
	ok    bool
}

// Store is the cache facade used by the pipeline. Lookups are memoized until
// ResetCycle is called, so a processing cycle that asks for the same
// (key, ttl) more than once only reaches the backend once.
type Store struct {
	backend Backend
	clock   clock.Clock
	memo    *kv.Store[memoKey, memoResult]
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used for write times and ages.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger used for backend read failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates a Store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		clock:   clock.New(),
		memo:    kv.New[memoKey, memoResult](),
		log:     log.With().Str("cmp", "cache").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clock returns the clock the store measures ages against.
func (s *Store) Clock() clock.Clock {
	return s.clock
}

// ResetCycle drops all memoized lookups. Call it at the start of every
// processing cycle.
func (s *Store) ResetCycle() {
	s.memo.Clear()
}

// Load returns the entry for key regardless of its age. Value and write time
// come from a single backend read, so an age computed from the result is
// consistent with the value.
func (s *Store) Load(ctx context.Context, key string) (Entry, bool) {
	res := s.memo.GetOrCompute(memoKey{key: key, ttl: loadTTL}, func() memoResult {
		e, err := s.backend.Read(ctx, key)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				s.log.Debug().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
			}
			return memoResult{}
		}
		return memoResult{entry: e, ok: true}
	})
	return res.entry, res.ok
}

// Get returns the value for key when its age is within ttl.
func (s *Store) Get(ctx context.Context, key string, ttl time.Duration) ([]byte, bool) {
	res := s.memo.GetOrCompute(memoKey{key: key, ttl: ttl}, func() memoResult {
		e, ok := s.Load(ctx, key)
		if !ok {
			return memoResult{}
		}
		age := e.AgeAt(s.clock.Now())
		if age < 0 || age > ttl {
			return memoResult{}
		}
		return memoResult{entry: e, ok: true}
	})
	return res.entry.Value, res.ok
}

// Age returns how long ago key was last written.
func (s *Store) Age(ctx context.Context, key string) (time.Duration, bool) {
	e, ok := s.Load(ctx, key)
	if !ok {
		return 0, false
	}
	return e.AgeAt(s.clock.Now()), true
}

// Set writes value under key with the current time as its write time.
// Memoized lookups for key are dropped after the write, so a lookup racing
// with it cannot keep the old entry for the rest of the cycle.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	err := s.backend.Write(ctx, Entry{Key: key, Value: value, WriteTime: s.clock.Now()})
	s.forget(key)
	return err
}

// Invalidate removes key.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	err := s.backend.Delete(ctx, key)
	s.forget(key)
	return err
}

// InvalidatePrefix removes every key starting with prefix.
func (s *Store) InvalidatePrefix(ctx context.Context, prefix string) error {
	err := s.backend.DeletePrefix(ctx, prefix)
	s.memo.DeleteFunc(func(k memoKey) bool { return strings.HasPrefix(k.key, prefix) })
	return err
}

// Keys lists all stored keys.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	return s.backend.Keys(ctx)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) forget(key string) {
	s.memo.DeleteFunc(func(k memoKey) bool { return k.key == key })
}
