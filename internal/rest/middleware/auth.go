package middleware

import (
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/metrics"
	"github.com/flexprice/tenantcore/internal/tenancy"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
)

// gin context keys
const (
	keyElevation = "tenantcore.elevation"
	keyTenant    = "tenantcore.tenant"
)

// TenantContextMiddleware resolves the tenant of the request once and puts
// the resolution on the request context. Every later read of the tenant
// goes through that context, never through shared state.
func TenantContextMiddleware(resolver *tenancy.Resolver, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := resolver.Resolve(c.Request.Context(), tenancy.Request{
			Authorization: c.GetHeader(types.HeaderAuthorization),
			Selector:      c.GetHeader(types.HeaderTenantID),
		})
		if err != nil {
			if ierr.IsBoundaryViolation(err) {
				m.BoundaryViolation("tenant_mismatch")
			}
			c.Error(err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(res.WithContext(c.Request.Context()))
		c.Next()
	}
}

// RequireCapability rejects callers whose resolved capability does not
// include required
func RequireCapability(required types.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !types.GetCapability(c.Request.Context()).Includes(required) {
			c.Error(ierr.NewError("insufficient capability").
				WithHintf("This operation requires the %s capability", required).
				Mark(ierr.ErrPermissionDenied))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Scope returns the isolation scope of the request, carrying the elevation
// when the bypass gate granted one to this request
func Scope(c *gin.Context) isolation.Scope {
	scope := isolation.ScopeFromContext(c.Request.Context())
	if e, ok := elevationFrom(c); ok {
		scope = scope.WithElevation(e)
	}
	return scope
}

func elevationFrom(c *gin.Context) (isolation.Elevation, bool) {
	v, ok := c.Get(keyElevation)
	if !ok {
		return isolation.Elevation{}, false
	}
	e, ok := v.(isolation.Elevation)
	return e, ok && e.Active()
}
