package answercache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "anscache:"

// redisBackend stores entries as JSON values with redis-native TTLs.
// Capacity pressure is redis' concern (maxmemory-policy allkeys-lru); the
// cache layer on top still tracks its own recent-entries window for the
// similarity fallback.
type redisBackend struct {
	rdb *redis.Client
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(rdb *redis.Client) Backend {
	return &redisBackend{rdb: rdb}
}

func (r *redisBackend) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, ErrCacheUnavailable
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// Poisoned value: drop it and treat as a miss.
		r.rdb.Del(ctx, redisKeyPrefix+key)
		return nil, nil
	}
	return &e, nil
}

func (r *redisBackend) Set(ctx context.Context, key string, e *Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ttl := time.Until(e.CreatedAt.Add(e.TTL))
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		return ErrCacheUnavailable
	}
	return nil
}

func (r *redisBackend) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return ErrCacheUnavailable
	}
	return nil
}

func (r *redisBackend) Len(ctx context.Context) int {
	n, err := r.rdb.DBSize(ctx).Result()
	if err != nil {
		return -1
	}
	return int(n)
}
