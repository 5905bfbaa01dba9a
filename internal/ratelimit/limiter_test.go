package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	redisClient "github.com/flexprice/tenantcore/internal/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)
}

func TestDailyLimiterRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.SetTime(fixedNow())
	client := redisClient.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), logger.NewNopLogger())

	l := NewDailyLimiter(NewRedisCounter(client))
	l.now = fixedNow
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "ten_1", 3)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := l.Allow(ctx, "ten_1", 3)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(4), d.Count)
	assert.True(t, ierr.IsRateLimited(d.Err()))

	// other tenants have their own budget
	d, err = l.Allow(ctx, "ten_2", 3)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	assert.True(t, mr.TTL(Key("ten_1", "2026-10-16")) > 0)
}

func TestDailyLimiterConcurrentBurst(t *testing.T) {
	l := NewDailyLimiter(NewMemoryCounter())
	l.now = fixedNow
	ctx := context.Background()

	const limit, calls = 50, 200
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Allow(ctx, "ten_1", limit)
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed)
}

func TestDailyLimiterUnlimited(t *testing.T) {
	l := NewDailyLimiter(NewMemoryCounter())
	d, err := l.Allow(context.Background(), "ten_1", 0)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, d.Unlimited)
	assert.NoError(t, d.Err())
}
