package middleware

import (
	"github.com/flexprice/tenantcore/internal/domain/plan"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
)

const keyPlan = "tenantcore.plan"

// LoadTenantMiddleware loads the resolved tenant and its plan once per
// request. Platform requests carry no tenant and pass through untouched.
func LoadTenantMiddleware(tenants domainTenant.Repository, plans service.PlanService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tenantID := types.GetTenantID(ctx)
		if tenantID == "" || tenantID == types.PlatformTenantID {
			c.Next()
			return
		}

		t, err := tenants.Get(ctx, tenantID)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		c.Set(keyTenant, t)

		if t.PlanName != "" {
			p, err := plans.GetPlanByName(ctx, t.PlanName)
			if err != nil {
				log.WithContext(ctx).Warnw("plan of tenant not found", "plan", t.PlanName, "error", err)
			} else {
				c.Set(keyPlan, p)
			}
		}
		c.Next()
	}
}

// RequireActiveTenant serves tenant-scoped traffic only for active tenants
func RequireActiveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := TenantFrom(c)
		if !ok || t.IsOperational() {
			c.Next()
			return
		}

		reason := "tenant_not_active"
		if t.Status == types.TenantStatusSuspended {
			reason = "subscription_inactive"
		}
		c.Error(ierr.NewError("tenant is not active").
			WithHintf("Your account is %s", t.Status).
			WithReportableDetails(map[string]any{
				"reason": reason,
				"status": t.Status,
			}).
			Mark(ierr.ErrFeatureUnavailable))
		c.Abort()
	}
}

// RequireFeature rejects tenants whose plan does not include feature and
// names the cheapest plan that does
func RequireFeature(feature string, plans service.PlanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := TenantFrom(c); !ok {
			c.Next()
			return
		}
		if p, ok := PlanFrom(c); ok && p.HasFeature(feature) {
			c.Next()
			return
		}

		details := map[string]any{
			"required_feature": feature,
			"reason":           "feature_not_in_plan",
		}
		if upgrade, ok := plans.CheapestWithFeature(c.Request.Context(), feature); ok {
			details["required_plan"] = upgrade.Name
		}
		c.Error(ierr.NewError("feature not available on plan").
			WithHintf("The %s feature is not included in your plan", feature).
			WithReportableDetails(details).
			Mark(ierr.ErrFeatureUnavailable))
		c.Abort()
	}
}

func TenantFrom(c *gin.Context) (*domainTenant.Tenant, bool) {
	v, ok := c.Get(keyTenant)
	if !ok {
		return nil, false
	}
	t, ok := v.(*domainTenant.Tenant)
	return t, ok
}

func PlanFrom(c *gin.Context) (*plan.Plan, bool) {
	v, ok := c.Get(keyPlan)
	if !ok {
		return nil, false
	}
	p, ok := v.(*plan.Plan)
	return p, ok
}
