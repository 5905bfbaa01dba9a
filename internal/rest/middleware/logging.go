package middleware

import (
	"time"

	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/gin-gonic/gin"
)

// paths too noisy to log
var quietPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// LoggingMiddleware logs one line per request once the handler chain is
// done, so the line carries the tenant and elevation resolved further down
func LoggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if _, ok := quietPaths[c.Request.URL.Path]; ok {
			return
		}

		status := c.Writer.Status()
		fields := []interface{}{
			"status", status,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"latency_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, "query", q)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		if e, ok := elevationFrom(c); ok {
			fields = append(fields, "operator_id", e.OperatorID(), "elevated_path", e.Path())
		}

		reqLog := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			reqLog.Errorw("HTTP_REQUEST_ERROR", fields...)
		case status >= 400:
			reqLog.Warnw("HTTP_REQUEST_WARNING", fields...)
		default:
			reqLog.Infow("HTTP_REQUEST_INFO", fields...)
		}
	}
}
