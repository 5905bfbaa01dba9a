package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flexprice/tenantcore/internal/cache"
	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/domain/plan"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/metrics"
	"github.com/flexprice/tenantcore/internal/ratelimit"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tenantFixture struct {
	plans   *testutil.InMemoryPlanStore
	usage   *testutil.InMemoryUsageStore
	params  service.ServiceParams
	starter *plan.Plan
}

func newTenantFixture(t *testing.T) *tenantFixture {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	f := &tenantFixture{
		plans: testutil.NewInMemoryPlanStore(),
		usage: testutil.NewInMemoryUsageStore(),
	}
	f.params = service.ServiceParams{
		Logger:    logger.NewNopLogger(),
		Config:    config.GetDefaultConfig(),
		PlanRepo:  f.plans,
		UsageRepo: f.usage,
		Cache:     cache.NewInMemoryCache(),
		Metrics:   metrics.NewMetrics(),
	}

	f.starter = &plan.Plan{ID: "plan_1", Name: "starter", Tier: 1, MaxAPICallsPerDay: 2, Active: true}
	growth := &plan.Plan{ID: "plan_2", Name: "growth", Tier: 2, Features: []string{types.FeatureDataExport}, Active: true}
	require.NoError(t, f.plans.Create(ctx, f.starter))
	require.NoError(t, f.plans.Create(ctx, growth))
	return f
}

// withTenant stands in for LoadTenantMiddleware
func withTenant(t *domainTenant.Tenant, p *plan.Plan) gin.HandlerFunc {
	return func(c *gin.Context) {
		if t != nil {
			c.Set(keyTenant, t)
		}
		if p != nil {
			c.Set(keyPlan, p)
		}
		c.Next()
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	return errBody
}

func TestRequireActiveTenant(t *testing.T) {
	f := newTenantFixture(t)

	tests := []struct {
		name   string
		tenant *domainTenant.Tenant
		want   int
		reason string
	}{
		{name: "active", tenant: &domainTenant.Tenant{ID: "ten_1", Status: types.TenantStatusActive}, want: http.StatusOK},
		{name: "suspended", tenant: &domainTenant.Tenant{ID: "ten_1", Status: types.TenantStatusSuspended}, want: http.StatusForbidden, reason: "subscription_inactive"},
		{name: "cancelled", tenant: &domainTenant.Tenant{ID: "ten_1", Status: types.TenantStatusCancelled}, want: http.StatusForbidden, reason: "tenant_not_active"},
		{name: "platform caller", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(ErrorHandler(), withTenant(tt.tenant, f.starter), RequireActiveTenant())
			router.GET("/v1/users", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/users", nil))
			assert.Equal(t, tt.want, w.Code)

			if tt.reason != "" {
				details, _ := decodeError(t, w)["details"].(map[string]any)
				assert.Equal(t, tt.reason, details["reason"])
			}
		})
	}
}

func TestRequireFeatureSuggestsPlan(t *testing.T) {
	f := newTenantFixture(t)
	plans := service.NewPlanService(f.params)
	active := &domainTenant.Tenant{ID: "ten_1", Status: types.TenantStatusActive, PlanName: "starter"}

	router := gin.New()
	router.Use(ErrorHandler(), withTenant(active, f.starter))
	router.POST("/v1/export", RequireFeature(types.FeatureDataExport, plans), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/export", nil))
	require.Equal(t, http.StatusForbidden, w.Code)

	details, _ := decodeError(t, w)["details"].(map[string]any)
	assert.Equal(t, types.FeatureDataExport, details["required_feature"])
	assert.Equal(t, "growth", details["required_plan"])
}

func TestQuotaMiddleware(t *testing.T) {
	f := newTenantFixture(t)
	usageService := service.NewUsageService(f.params)
	active := &domainTenant.Tenant{ID: "ten_1", Status: types.TenantStatusActive, PlanName: "starter"}

	router := gin.New()
	router.Use(
		ErrorHandler(),
		withTenant(active, f.starter),
		QuotaMiddleware(ratelimit.NewDailyLimiter(ratelimit.NewMemoryCounter()), usageService, f.params.Metrics, logger.NewNopLogger()),
	)
	router.GET("/v1/usage", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		router.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/v1/usage", nil))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))

	// only admitted calls are mirrored into the usage row
	now := time.Now().UTC()
	m, err := f.usage.Get(context.Background(), "ten_1", types.UsagePeriod(now))
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.APIRequestsToday)
	assert.EqualValues(t, 2, m.APIRequestsTotal)
}
