package registry

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("Lookup and Store", func(t *testing.T) {
		reg := NewMemoryRegistry(0, 0)

		if _, ok, _ := reg.Lookup(ctx, "Clocks - Coldplay"); ok {
			t.Fatal("empty registry should miss")
		}

		reg.Store(ctx, "Clocks - Coldplay", "spotify:track:1")
		uri, ok, err := reg.Lookup(ctx, "Clocks - Coldplay")
		if err != nil || !ok || uri != "spotify:track:1" {
			t.Errorf("expected cached uri, got %q %v %v", uri, ok, err)
		}

		if _, ok, _ := reg.Lookup(ctx, "clocks - coldplay"); ok {
			t.Error("lookup is on the exact raw string")
		}
	})

	t.Run("Claim", func(t *testing.T) {
		reg := NewMemoryRegistry(0, 0)

		ok, _ := reg.Claim(ctx, "spotify:track:1", "Clocks - Coldplay")
		if !ok {
			t.Fatal("first claim should succeed")
		}

		claimed, _ := reg.IsClaimed(ctx, "spotify:track:1")
		if !claimed {
			t.Error("uri should be claimed")
		}

		if ok, _ := reg.Claim(ctx, "spotify:track:1", "Clocks (Live) - Coldplay"); ok {
			t.Error("uri must not be claimed for a different raw string")
		}
		if ok, _ := reg.Claim(ctx, "spotify:track:1", "Clocks - Coldplay"); !ok {
			t.Error("re-claiming for the same raw string is allowed")
		}
	})

	t.Run("Concurrent claims have one winner", func(t *testing.T) {
		reg := NewMemoryRegistry(0, 0)

		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		for i := range 20 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ok, _ := reg.Claim(ctx, "spotify:track:x", string(rune('a'+i)))
				if ok {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		if winners != 1 {
			t.Errorf("expected exactly one winner, got %d", winners)
		}
	})

	t.Run("Bounds", func(t *testing.T) {
		clock := newFakeClock()
		reg := NewMemoryRegistryWithClock(2, time.Hour, clock.Now)

		reg.Store(ctx, "a", "uri:a")
		reg.Store(ctx, "b", "uri:b")
		reg.Store(ctx, "c", "uri:c")

		if _, ok, _ := reg.Lookup(ctx, "a"); ok {
			t.Error("oldest entry should be evicted at capacity")
		}

		clock.Advance(2 * time.Hour)
		if _, ok, _ := reg.Lookup(ctx, "c"); ok {
			t.Error("entry should expire after ttl")
		}

		cached, claimed := reg.Len()
		if cached != 1 || claimed != 0 {
			t.Errorf("expected 1 cached (b not yet swept) and 0 claimed, got %d and %d", cached, claimed)
		}
	})
}
