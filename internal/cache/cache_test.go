package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/logger"
	redisClient "github.com/flexprice/tenantcore/internal/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPlan struct {
	Name string `json:"name"`
	Tier int    `json:"tier"`
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	c.Set(ctx, PrefixPlan+"p1", &cachedPlan{Name: "starter", Tier: 1}, 0)
	c.Set(ctx, PrefixPlanByName+"growth", &cachedPlan{Name: "growth", Tier: 2}, 0)
	c.Set(ctx, "other", "x", 0)

	v, ok := c.Get(ctx, PrefixPlan+"p1")
	require.True(t, ok)
	p, ok := UnmarshalCacheValue[cachedPlan](v)
	require.True(t, ok)
	assert.Equal(t, "starter", p.Name)

	c.DeleteByPrefix(ctx, PrefixPlan)
	_, ok = c.Get(ctx, PrefixPlanByName+"growth")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "other")
	assert.True(t, ok)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = true
	client := redisClient.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), logger.NewNopLogger())
	c := NewRedisCache(client, logger.NewNopLogger(), cfg)

	c.Set(ctx, PrefixPlan+"p1", &cachedPlan{Name: "growth", Tier: 2}, time.Minute)

	v, ok := c.Get(ctx, PrefixPlan+"p1")
	require.True(t, ok)
	p, ok := UnmarshalCacheValue[cachedPlan](v)
	require.True(t, ok)
	assert.Equal(t, 2, p.Tier)

	c.DeleteByPrefix(ctx, "plan:")
	_, ok = c.Get(ctx, PrefixPlan+"p1")
	assert.False(t, ok)
}

func TestRedisCacheDisabled(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = false
	client := redisClient.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), logger.NewNopLogger())
	c := NewRedisCache(client, logger.NewNopLogger(), cfg)

	c.Set(context.Background(), "k", "v", 0)
	assert.False(t, mr.Exists(Namespace+"k"))
}

func TestRedisCacheFlushKeepsForeignKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("ratelimit:ten_acme:2026-10-16", "7"))

	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = true
	client := redisClient.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), logger.NewNopLogger())
	c := NewRedisCache(client, logger.NewNopLogger(), cfg)

	c.Set(ctx, PrefixPlan+"p1", "cached", time.Minute)
	assert.True(t, mr.Exists(Namespace+PrefixPlan+"p1"))

	c.Flush(ctx)
	assert.False(t, mr.Exists(Namespace+PrefixPlan+"p1"))
	assert.True(t, mr.Exists("ratelimit:ten_acme:2026-10-16"))

	c.Delete(ctx, "missing")
}
