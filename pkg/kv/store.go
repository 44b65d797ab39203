// Package kv provides a generic thread-safe key-value table.
package kv

import "sync"

// Store is a thread-safe generic key-value table.
type Store[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// New creates a new key-value table.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{
		data: make(map[K]V),
	}
}

// Get retrieves a value by key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// Set stores a value by key.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// GetOrCompute returns the stored value for key, or calls fn and stores its
// result. fn runs without the lock held, so two concurrent callers may both
// compute; the first stored value wins and is returned to both.
func (s *Store[K, V]) GetOrCompute(key K, fn func() V) V {
	if v, ok := s.Get(key); ok {
		return v
	}

	v := fn()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.data[key]; ok {
		return existing
	}
	s.data[key] = v
	return v
}

// Delete removes a key from the table.
func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// DeleteFunc removes every entry whose key matches pred and returns how many
// were removed.
func (s *Store[K, V]) DeleteFunc(pred func(K) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.data {
		if pred(k) {
			delete(s.data, k)
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (s *Store[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[K]V)
}

// Keys returns all keys in the table.
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]K, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
