package middleware

import (
	"time"

	"github.com/flexprice/tenantcore/internal/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request latency per route template
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
