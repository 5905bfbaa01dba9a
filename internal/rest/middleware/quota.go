package middleware

import (
	"strconv"
	"time"

	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/metrics"
	"github.com/flexprice/tenantcore/internal/ratelimit"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/gin-gonic/gin"
)

// QuotaMiddleware counts every tenant request against the daily API cap of
// its plan. The counter backend failing lets the request through.
func QuotaMiddleware(limiter *ratelimit.DailyLimiter, usage service.UsageService, m *metrics.Metrics, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := TenantFrom(c)
		if !ok {
			c.Next()
			return
		}

		var limit int64
		if p, ok := PlanFrom(c); ok {
			limit = p.MaxAPICallsPerDay
		}

		ctx := c.Request.Context()
		d, err := limiter.Allow(ctx, t.ID, limit)
		if err != nil {
			log.WithContext(ctx).Errorw("rate limit counter unavailable", "error", err)
			c.Next()
			return
		}

		if !d.Unlimited {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(d.Limit-d.Count, 0), 10))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetsAt.Unix(), 10))
		}

		if !d.Allowed {
			m.RateLimited()
			c.Header("Retry-After", strconv.Itoa(int(time.Until(d.ResetsAt).Seconds())+1))
			c.Error(d.Err())
			c.Abort()
			return
		}

		if err := usage.MirrorAPIRequests(ctx, t.ID, d.Count, time.Now().UTC()); err != nil {
			log.WithContext(ctx).Warnw("failed to mirror api request count", "error", err)
		}
		c.Next()
	}
}
