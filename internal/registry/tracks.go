package registry

import (
	"context"
	"sync"
	"time"
)

// TrackRegistry caches raw-string resolutions and records which catalog URIs are claimed.
//
// Once a URI is claimed for a raw string it is never claimed for a different one while the
// claim lives.
type TrackRegistry interface {
	// Lookup returns the URI previously stored for the exact raw string.
	Lookup(ctx context.Context, raw string) (uri string, ok bool, err error)

	// Store caches uri as the resolution of raw.
	Store(ctx context.Context, raw, uri string) error

	// IsClaimed reports whether uri is already bound to some raw string.
	IsClaimed(ctx context.Context, uri string) (bool, error)

	// Claim binds uri to raw atomically. It returns false when uri is bound to a different raw string.
	Claim(ctx context.Context, uri, raw string) (bool, error)
}

// MemoryRegistry is an in-process [TrackRegistry].
type MemoryRegistry struct {
	mu     sync.Mutex
	cache  *boundedMap[string]
	claims *boundedMap[string]
}

// NewMemoryRegistry returns a registry bounded by maxEntries per map and ttl per entry.
//
// Zero for either disables that bound.
func NewMemoryRegistry(maxEntries int, ttl time.Duration) *MemoryRegistry {
	return NewMemoryRegistryWithClock(maxEntries, ttl, time.Now)
}

// NewMemoryRegistryWithClock is [NewMemoryRegistry] with an injected clock.
func NewMemoryRegistryWithClock(maxEntries int, ttl time.Duration, now func() time.Time) *MemoryRegistry {
	return &MemoryRegistry{
		cache:  newBoundedMap[string](maxEntries, ttl, now),
		claims: newBoundedMap[string](maxEntries, ttl, now),
	}
}

func (r *MemoryRegistry) Lookup(_ context.Context, raw string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	uri, ok := r.cache.get(raw)
	return uri, ok, nil
}

func (r *MemoryRegistry) Store(_ context.Context, raw, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.put(raw, uri)
	return nil
}

func (r *MemoryRegistry) IsClaimed(_ context.Context, uri string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.claims.get(uri)
	return ok, nil
}

func (r *MemoryRegistry) Claim(_ context.Context, uri, raw string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.claims.get(uri); ok {
		return owner == raw, nil
	}
	r.claims.put(uri, raw)
	return true, nil
}

// Len returns the number of cached resolutions and claimed URIs.
func (r *MemoryRegistry) Len() (cached, claimed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.len(), r.claims.len()
}
