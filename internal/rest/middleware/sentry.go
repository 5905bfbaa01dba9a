package middleware

import (
	"time"

	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware attaches a sentry hub to every request. A no-op when
// sentry is disabled.
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryTenantContextMiddleware tags the sentry scope with the request id
// and the resolved tenant, actor and capability. Add it after
// TenantContextMiddleware.
func SentryTenantContextMiddleware(c *gin.Context) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		c.Next()
		return
	}

	ctx := c.Request.Context()
	scope := hub.Scope()
	if requestID := types.GetRequestID(ctx); requestID != "" {
		scope.SetTag("request_id", requestID)
	}
	if tenantID := types.GetTenantID(ctx); tenantID != "" {
		scope.SetTag("tenant_id", tenantID)
	}
	if userID := types.GetUserID(ctx); userID != "" {
		scope.SetUser(sentry.User{ID: userID})
	}
	if capability := types.GetCapability(ctx); capability != types.CapabilityNone {
		scope.SetTag("capability", capability.String())
	}
	c.Next()
}
