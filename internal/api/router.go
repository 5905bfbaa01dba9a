package api

import (
	"net/http"

	"github.com/flexprice/tenantcore/internal/api/cron"
	v1 "github.com/flexprice/tenantcore/internal/api/v1"
	"github.com/flexprice/tenantcore/internal/config"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/metrics"
	"github.com/flexprice/tenantcore/internal/ratelimit"
	"github.com/flexprice/tenantcore/internal/rest/middleware"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/flexprice/tenantcore/internal/tenancy"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Tenant    *v1.TenantHandler
	Directory *v1.DirectoryHandler
	Usage     *v1.UsageHandler
	Plan      *v1.PlanHandler
	Webhook   *v1.WebhookHandler
	Audit     *v1.AuditHandler
	Cron      *cron.LifecycleCronHandler
}

// RouterParams is what the middleware chain needs besides the handlers
type RouterParams struct {
	Config       *config.Configuration
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
	Resolver     *tenancy.Resolver
	AllowList    *isolation.AllowList
	Limiter      *ratelimit.DailyLimiter
	TenantRepo   domainTenant.Repository
	PlanService  service.PlanService
	UsageService service.UsageService
	AuditService service.AuditService
}

func NewRouter(handlers Handlers, p RouterParams) *gin.Engine {
	if p.Config.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(p.Config),
		middleware.LoggingMiddleware(p.Logger),
		middleware.MetricsMiddleware(p.Metrics),
		gin.Recovery(),
		middleware.ErrorHandler(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(p.Metrics.Handler()))

	public := router.Group("/v1")
	{
		public.POST("/signup", handlers.Tenant.Signup)
		public.GET("/signup/:id/status", handlers.Tenant.GetStatus)
		public.GET("/plans", handlers.Plan.ListPlans)
		public.POST("/webhooks/billing/:provider", handlers.Webhook.HandleBillingWebhook)
	}

	resolved := router.Group("/v1")
	resolved.Use(
		middleware.TenantContextMiddleware(p.Resolver, p.Metrics),
		middleware.SentryTenantContextMiddleware,
	)

	// tenant-scoped surface; a platform caller resolves to no tenant here
	// and every read comes back empty
	tenant := resolved.Group("")
	tenant.Use(
		middleware.LoadTenantMiddleware(p.TenantRepo, p.PlanService, p.Logger),
		middleware.RequireActiveTenant(),
		middleware.QuotaMiddleware(p.Limiter, p.UsageService, p.Metrics, p.Logger),
	)
	{
		tenant.GET("/users", handlers.Directory.ListUsers)
		tenant.GET("/users/:id", handlers.Directory.GetUser)
		tenant.GET("/roles", handlers.Directory.ListRoles)
		tenant.GET("/modules", handlers.Directory.ListModules)
		tenant.GET("/departments", handlers.Directory.ListDepartments)
		tenant.POST("/departments", middleware.RequireCapability(types.CapabilityTenantAdmin), handlers.Directory.CreateDepartment)
		tenant.GET("/usage", handlers.Usage.GetUsage)
		tenant.GET("/alerts", handlers.Usage.ListAlerts)
		tenant.POST("/export",
			middleware.RequireCapability(types.CapabilityTenantAdmin),
			middleware.RequireFeature(types.FeatureDataExport, p.PlanService),
			handlers.Usage.Export,
		)
	}

	// administrative surface, every request goes through the bypass gate
	admin := resolved.Group("/admin")
	admin.Use(middleware.BypassMiddleware(p.AllowList, p.AuditService, p.Config, p.Metrics, p.Logger))
	{
		tenants := admin.Group("/tenants")
		{
			tenants.GET("", handlers.Tenant.ListTenants)
			tenants.GET("/:id", handlers.Tenant.GetTenant)
			tenants.POST("/:id/activate", handlers.Tenant.Activate)
			tenants.POST("/:id/suspend", handlers.Tenant.Suspend)
			tenants.POST("/:id/resume", handlers.Tenant.Resume)
			tenants.POST("/:id/cancel", handlers.Tenant.Cancel)
			tenants.PUT("/:id/plan", handlers.Tenant.ChangePlan)
			tenants.POST("/:id/provisioning/retry", handlers.Tenant.RetryProvisioning)
			tenants.GET("/:id/events", handlers.Tenant.ListEvents)
			tenants.GET("/:id/alerts", handlers.Usage.ListTenantAlerts)
			tenants.POST("/:id/export", handlers.Tenant.Export)
		}

		users := admin.Group("/users")
		{
			users.GET("", handlers.Directory.ListUsers)
			users.GET("/:id", handlers.Directory.GetUser)
			users.PUT("/:id", handlers.Directory.UpdateUser)
			users.DELETE("/:id", handlers.Directory.DeleteUser)
		}

		plans := admin.Group("/plans")
		{
			plans.GET("", handlers.Plan.ListPlans)
			plans.POST("", handlers.Plan.CreatePlan)
			plans.GET("/:id", handlers.Plan.GetPlan)
			plans.PUT("/:id", handlers.Plan.UpdatePlan)
		}

		webhooks := admin.Group("/webhooks")
		{
			webhooks.GET("", handlers.Webhook.ListWebhookEvents)
			webhooks.GET("/:id", handlers.Webhook.GetWebhookEvent)
			webhooks.POST("/:id/reprocess", handlers.Webhook.Reprocess)
		}
	}

	// platform reads that never touch tenant-owned rows need no elevation
	platform := resolved.Group("/platform")
	platform.Use(middleware.RequireCapability(types.CapabilityPlatformOperator))
	{
		platform.GET("/audits", handlers.Audit.ListAudits)
		platform.POST("/cron/monitor", handlers.Cron.RunMonitor)
		platform.POST("/cron/provisioning", handlers.Cron.RunProvisioning)
	}

	return router
}
