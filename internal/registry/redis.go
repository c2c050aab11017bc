package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry is a [TrackRegistry] shared by every process pointed at the same Redis.
//
// Cache entries live under "<prefix>:track:<raw>" and claims under "<prefix>:claim:<uri>".
// A zero TTL keeps keys without expiry.
type RedisRegistry struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisRegistry wraps an existing client.
func NewRedisRegistry(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisRegistry {
	if prefix == "" {
		prefix = "moodmix"
	}
	return &RedisRegistry{rdb: rdb, prefix: prefix, ttl: ttl}
}

// DialRedisRegistry parses url, connects and verifies the server responds.
func DialRedisRegistry(ctx context.Context, url, prefix string, ttl time.Duration) (*RedisRegistry, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewRedisRegistry(rdb, prefix, ttl), nil
}

func (r *RedisRegistry) Lookup(ctx context.Context, raw string) (string, bool, error) {
	uri, err := r.rdb.Get(ctx, r.trackKey(raw)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return uri, true, nil
}

func (r *RedisRegistry) Store(ctx context.Context, raw, uri string) error {
	if err := r.rdb.Set(ctx, r.trackKey(raw), uri, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisRegistry) IsClaimed(ctx context.Context, uri string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.claimKey(uri)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRegistry) Claim(ctx context.Context, uri, raw string) (bool, error) {
	key := r.claimKey(uri)

	ok, err := r.rdb.SetNX(ctx, key, raw, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	if ok {
		return true, nil
	}

	owner, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// claim expired between SETNX and GET; try once more
		return r.rdb.SetNX(ctx, key, raw, r.ttl).Result()
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}
	return owner == raw, nil
}

// Close releases the underlying client.
func (r *RedisRegistry) Close() error {
	return r.rdb.Close()
}

func (r *RedisRegistry) trackKey(raw string) string {
	return r.prefix + ":track:" + raw
}

func (r *RedisRegistry) claimKey(uri string) string {
	return r.prefix + ":claim:" + uri
}
