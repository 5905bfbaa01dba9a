package ratelimit

import (
	"context"
	"time"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	redisClient "github.com/flexprice/tenantcore/internal/redis"
	gocache "github.com/patrickmn/go-cache"
)

// Counter atomically increments a windowed counter and returns the value
// after the increment. Read and increment happen in one step, so two
// concurrent callers can never observe the same count.
type Counter interface {
	Incr(ctx context.Context, key string, expireAt time.Time) (int64, error)
}

// RedisCounter runs INCR and EXPIREAT in one MULTI/EXEC
type RedisCounter struct {
	client *redisClient.Client
}

func NewRedisCounter(client *redisClient.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, expireAt time.Time) (int64, error) {
	pipe := c.client.GetClient().TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, expireAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Rate limit counter unavailable").
			Mark(ierr.ErrSystem)
	}
	return incr.Val(), nil
}

// MemoryCounter is the single-process fallback on top of go-cache, whose
// IncrementInt64 holds the cache lock across read and write
type MemoryCounter struct {
	cache *gocache.Cache
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{cache: gocache.New(24*time.Hour, time.Hour)}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, expireAt time.Time) (int64, error) {
	// Add fails when the key exists, which is the common case
	_ = c.cache.Add(key, int64(0), time.Until(expireAt))
	n, err := c.cache.IncrementInt64(key, 1)
	if err != nil {
		return 0, ierr.WithError(err).Mark(ierr.ErrInternal)
	}
	return n, nil
}
