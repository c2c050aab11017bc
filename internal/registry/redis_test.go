package registry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisRegistry(t *testing.T, ttl time.Duration) (*RedisRegistry, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	reg := NewRedisRegistry(rdb, "test", ttl)
	t.Cleanup(func() { reg.Close() })
	return reg, mr
}

func TestRedisRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("Lookup and Store", func(t *testing.T) {
		reg, mr := newTestRedisRegistry(t, 0)

		if _, ok, err := reg.Lookup(ctx, "Clocks - Coldplay"); ok || err != nil {
			t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
		}

		if err := reg.Store(ctx, "Clocks - Coldplay", "spotify:track:1"); err != nil {
			t.Fatalf("Store() error = %v", err)
		}

		uri, ok, err := reg.Lookup(ctx, "Clocks - Coldplay")
		if err != nil || !ok || uri != "spotify:track:1" {
			t.Errorf("expected cached uri, got %q %v %v", uri, ok, err)
		}

		got, err := mr.Get("test:track:Clocks - Coldplay")
		if err != nil || got != "spotify:track:1" {
			t.Errorf("unexpected stored key: %q %v", got, err)
		}
	})

	t.Run("Claim", func(t *testing.T) {
		reg, _ := newTestRedisRegistry(t, 0)

		ok, err := reg.Claim(ctx, "spotify:track:1", "Clocks - Coldplay")
		if err != nil || !ok {
			t.Fatalf("first claim should succeed: %v %v", ok, err)
		}

		claimed, err := reg.IsClaimed(ctx, "spotify:track:1")
		if err != nil || !claimed {
			t.Errorf("uri should be claimed: %v %v", claimed, err)
		}

		if ok, _ := reg.Claim(ctx, "spotify:track:1", "Other - Raw"); ok {
			t.Error("uri must not be claimed for a different raw string")
		}
		if ok, _ := reg.Claim(ctx, "spotify:track:1", "Clocks - Coldplay"); !ok {
			t.Error("same raw string may re-claim")
		}
	})

	t.Run("TTL", func(t *testing.T) {
		reg, mr := newTestRedisRegistry(t, time.Minute)

		reg.Store(ctx, "raw", "uri")
		reg.Claim(ctx, "uri", "raw")

		if ttl := mr.TTL("test:claim:uri"); ttl != time.Minute {
			t.Errorf("expected claim ttl 1m, got %s", ttl)
		}

		mr.FastForward(2 * time.Minute)

		if _, ok, _ := reg.Lookup(ctx, "raw"); ok {
			t.Error("cache entry should expire")
		}
		if claimed, _ := reg.IsClaimed(ctx, "uri"); claimed {
			t.Error("claim should expire")
		}
	})

	t.Run("Server error", func(t *testing.T) {
		reg, mr := newTestRedisRegistry(t, 0)
		mr.SetError("ERR injected failure")

		if _, _, err := reg.Lookup(ctx, "raw"); err == nil {
			t.Error("expected error when redis fails")
		}
		if _, err := reg.Claim(ctx, "uri", "raw"); err == nil {
			t.Error("expected claim error when redis fails")
		}
	})

	t.Run("DialRedisRegistry", func(t *testing.T) {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("failed to start miniredis: %v", err)
		}
		defer mr.Close()

		reg, err := DialRedisRegistry(ctx, "redis://"+mr.Addr()+"/0", "", 0)
		if err != nil {
			t.Fatalf("DialRedisRegistry() error = %v", err)
		}
		defer reg.Close()

		if reg.prefix != "moodmix" {
			t.Errorf("expected default prefix, got %s", reg.prefix)
		}

		if _, err := DialRedisRegistry(ctx, "not a url", "", 0); err == nil {
			t.Error("expected error for invalid url")
		}
	})
}
