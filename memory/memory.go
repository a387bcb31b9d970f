// Package memory is the in-process reference backend for kvstore.
//
// A Store keeps a single map guarded by a sync.RWMutex. Readers share the lock,
// Set takes it exclusively, so every key sees last-committed-write-wins and
// a Set is either fully visible or not yet applied. Work is done on the
// caller's goroutine; nothing here blocks beyond lock acquisition.
package memory

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/kvstore"
)

// Store is a concurrency-safe map-backed kvstore.Store.
// The zero value is NOT ready to use. Construct with New or NewWithClone.
type Store[K comparable, V any] struct {
	mu     sync.RWMutex
	data   map[K]V
	clone  func(V) V // nil => plain assignment copy
	closed bool
}

var _ kvstore.Store[string, int] = (*Store[string, int])(nil)

// New returns an empty Store. Values are copied by assignment, which is
// enough for value types. Use NewWithClone when V holds references.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{data: make(map[K]V)}
}

// NewWithClone returns an empty Store that passes every value through clone
// on its way in and out, so callers never share memory with the map.
func NewWithClone[K comparable, V any](clone func(V) V) *Store[K, V] {
	return &Store[K, V]{data: make(map[K]V), clone: clone}
}

func (s *Store[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, false, kvstore.Errorf("get", err, "context done")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return zero, false, kvstore.Errorf("get", kvstore.ErrClosed, "memory store")
	}
	v, ok := s.data[key]
	if !ok {
		return zero, false, nil
	}
	return s.copy(v), true, nil
}

func (s *Store[K, V]) Set(ctx context.Context, key K, val V) (V, bool, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, false, kvstore.Errorf("set", err, "context done")
	}
	val = s.copy(val)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zero, false, kvstore.Errorf("set", kvstore.ErrClosed, "memory store")
	}
	// the replaced value leaves the map, so it needs no copy
	prev, ok := s.data[key]
	s.data[key] = val
	return prev, ok, nil
}

// Len returns the number of stored keys (0 after Close).
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close drops all entries. Later Get/Set calls fail with kvstore.ErrClosed.
// Safe to call multiple times.
func (s *Store[K, V]) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

func (s *Store[K, V]) copy(v V) V {
	if s.clone == nil {
		return v
	}
	return s.clone(v)
}
