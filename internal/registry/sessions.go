package registry

import (
	"sync"
	"time"
)

// SessionStore keeps at most one value per user key.
//
// Entries idle longer than the TTL are dropped on access and by [SessionStore.Sweep]; when the
// store is full the least recently used entry is evicted.
type SessionStore[T any] struct {
	mu      sync.Mutex
	entries *boundedMap[T]
}

// NewSessionStore returns a store bounded by maxEntries and idle ttl. Zero disables either bound.
func NewSessionStore[T any](maxEntries int, ttl time.Duration) *SessionStore[T] {
	return NewSessionStoreWithClock[T](maxEntries, ttl, time.Now)
}

// NewSessionStoreWithClock is [NewSessionStore] with an injected clock.
func NewSessionStoreWithClock[T any](maxEntries int, ttl time.Duration, now func() time.Time) *SessionStore[T] {
	return &SessionStore[T]{entries: newBoundedMap[T](maxEntries, ttl, now)}
}

// Get returns the live value for key and refreshes its idle timer.
func (s *SessionStore[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.entries.get(key)
	if ok {
		s.entries.touch(key)
	}
	return value, ok
}

// GetOrCreate returns the live value for key, creating it with create when absent.
//
// created is true when create was called. The check and insert are atomic.
func (s *SessionStore[T]) GetOrCreate(key string, create func() T) (value T, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value, ok := s.entries.get(key); ok {
		s.entries.touch(key)
		return value, false
	}

	value = create()
	s.entries.put(key, value)
	return value, true
}

// Put stores value under key, replacing any previous value.
func (s *SessionStore[T]) Put(key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.put(key, value)
}

// Delete removes key.
func (s *SessionStore[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.delete(key)
}

// CompareAndDelete removes key only while it still maps to value according to same.
func (s *SessionStore[T]) CompareAndDelete(key string, same func(T) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entries.get(key)
	if !ok || !same(current) {
		return false
	}
	s.entries.delete(key)
	return true
}

// Len returns the number of stored entries, including any not yet swept.
func (s *SessionStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.len()
}

// Sweep drops expired entries and reports how many were removed.
func (s *SessionStore[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.sweep()
}
