package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/logger"
	redisClient "github.com/flexprice/tenantcore/internal/redis"
	"github.com/redis/go-redis/v9"
)

const (
	// Namespace prefixes every cache key. The daily rate counters live in
	// the same database under their own prefix.
	Namespace = "tenantcore:cache:"

	scanCount   = 100
	deleteBatch = 500
)

// RedisCache implements Cache on redis. Values are stored as JSON strings;
// use UnmarshalCacheValue on read.
type RedisCache struct {
	client  *redis.Client
	log     *logger.Logger
	enabled bool
}

func NewRedisCache(client *redisClient.Client, log *logger.Logger, cfg *config.Configuration) *RedisCache {
	return &RedisCache{
		client:  client.GetClient(),
		log:     log,
		enabled: cfg.Cache.Enabled,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}

	span := StartCacheSpan(ctx, "redis", "get", map[string]interface{}{"key": key})
	defer FinishSpan(span)

	value, err := c.client.Get(ctx, Namespace+key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		SetSpanSuccess(span)
		return nil, false
	case err != nil:
		SetSpanError(span, err)
		c.log.WithContext(ctx).Warnw("cache read failed", "key", key, "error", err)
		return nil, false
	}
	SetSpanSuccess(span)
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.enabled {
		return
	}
	if expiration == 0 {
		expiration = ExpiryDefaultRedis
	}

	encoded, ok := value.(string)
	if !ok {
		b, err := json.Marshal(value)
		if err != nil {
			c.log.WithContext(ctx).Errorw("cache value not encodable", "key", key, "error", err)
			return
		}
		encoded = string(b)
	}

	if err := c.client.Set(ctx, Namespace+key, encoded, expiration).Err(); err != nil {
		c.log.WithContext(ctx).Warnw("cache write failed", "key", key, "error", err)
	}
}

// Delete removes key. A stale plan would outlive an update, so the delete
// is retried briefly and detached from the caller's cancellation.
func (c *RedisCache) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	op := func() error {
		return c.client.Del(ctx, Namespace+key).Err()
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		c.log.WithContext(ctx).Errorw("cache delete failed", "key", key, "error", err)
	}
}

// DeleteByPrefix unlinks every key under prefix in batches
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, Namespace+prefix+"*", scanCount).Iterator()

	batch := make([]string, 0, deleteBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			c.log.WithContext(ctx).Errorw("cache prefix delete failed", "prefix", prefix, "error", err)
		}
		batch = batch[:0]
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == deleteBatch {
			flush()
		}
	}
	flush()

	if err := iter.Err(); err != nil {
		c.log.WithContext(ctx).Errorw("cache scan failed", "prefix", prefix, "error", err)
	}
}

// Flush drops every cache key. Other data in the database is left alone.
func (c *RedisCache) Flush(ctx context.Context) {
	c.DeleteByPrefix(ctx, "")
}
