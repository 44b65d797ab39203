package kv

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_GetSet(t *testing.T) {
	s := New[string, int]()

	s.Set("foo", 42)
	val, ok := s.Get("foo")
	assert.True(t, ok)
	assert.Equal(t, 42, val)

	_, ok = s.Get("bar")
	assert.False(t, ok)
}

func TestStore_GetOrCompute(t *testing.T) {
	s := New[string, int]()
	calls := 0

	fn := func() int {
		calls++
		return 7
	}

	assert.Equal(t, 7, s.GetOrCompute("a", fn))
	assert.Equal(t, 7, s.GetOrCompute("a", fn))
	assert.Equal(t, 1, calls)
}

func TestStore_DeleteFunc(t *testing.T) {
	s := New[string, int]()
	s.Set("cpu", 1)
	s.Set("cpu.load", 2)
	s.Set("memory", 3)

	n := s.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, "cpu") })

	assert.Equal(t, 2, n)
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("memory")
	assert.True(t, ok)
}

func TestStore_Clear(t *testing.T) {
	s := New[string, int]()
	s.Set("a", 1)
	s.Set("b", 2)

	s.Clear()

	assert.Equal(t, 0, s.Len())
}

func TestStore_ConcurrentGetOrCompute(t *testing.T) {
	s := New[int, int]()
	var computed atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got := s.GetOrCompute(n%10, func() int {
				computed.Add(1)
				return n % 10
			})
			assert.Equal(t, n%10, got)
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 10, s.Len())
	assert.GreaterOrEqual(t, computed.Load(), int32(10))
}
