package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/domain/adminaudit"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/metrics"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// BypassMiddleware guards the administrative surface. A caller is elevated
// only when it is a platform operator on an allow-listed path; everybody
// else is rejected before the handler runs. Every elevated request writes
// exactly one admin audit row once the handler is done, including when
// the handler fails or panics.
func BypassMiddleware(
	allowList *isolation.AllowList,
	audits service.AuditService,
	cfg *config.Configuration,
	m *metrics.Metrics,
	log *logger.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		elevation, ok := allowList.Elevate(types.GetCapability(ctx), types.GetUserID(ctx), c.Request.URL.Path)
		if !ok {
			log.WithContext(ctx).Warnw("bypass denied",
				"path", c.Request.URL.Path,
				"capability", types.GetCapability(ctx).String(),
			)
			c.Error(ierr.NewError("bypass not permitted").
				WithHint("You do not have access to this endpoint").
				Mark(ierr.ErrPermissionDenied))
			c.Abort()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		c.Set(keyElevation, elevation)
		start := time.Now()

		defer func() {
			recovered := recover()

			status := c.Writer.Status()
			var errMsg string
			if recovered != nil {
				status = http.StatusInternalServerError
				errMsg = fmt.Sprintf("panic: %v", recovered)
			} else if len(c.Errors) > 0 {
				err := c.Errors.Last().Err
				status = ierr.HTTPStatusFromErr(err)
				errMsg = err.Error()
			}
			success := errMsg == "" && status < http.StatusBadRequest

			record := &adminaudit.AdminAudit{
				ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ADMIN_AUDIT),
				OperatorID:     elevation.OperatorID(),
				ActionType:     actionType(c),
				Method:         c.Request.Method,
				Endpoint:       c.Request.URL.Path,
				TargetTenantID: targetTenant(c),
				TargetEntityID: lo.EmptyableToPtr(c.Param("id")),
				RequestPayload: service.SanitizePayload(body, cfg.Audit.MaxPayloadBytes),
				StatusCode:     status,
				Success:        success,
				Error:          errMsg,
				DurationMs:     time.Since(start).Milliseconds(),
				IPAddress:      c.ClientIP(),
				UserAgent:      c.Request.UserAgent(),
				RequestID:      types.GetRequestID(ctx),
				CreatedAt:      time.Now().UTC(),
			}
			// Record reports its own failures
			_ = audits.Record(ctx, record)
			m.BypassRequest(success)

			if recovered != nil {
				panic(recovered)
			}
		}()

		c.Next()
	}
}

// actionType names the route template, e.g. "POST /v1/admin/tenants/:id/suspend"
func actionType(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return c.Request.Method + " " + route
}

func targetTenant(c *gin.Context) *string {
	if strings.HasPrefix(c.FullPath(), isolation.AdminPrefixTenants+"/") {
		return lo.EmptyableToPtr(c.Param("id"))
	}
	if id := c.Query("tenant_id"); id != "" {
		return &id
	}
	return nil
}
