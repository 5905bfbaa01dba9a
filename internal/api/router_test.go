package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flexprice/tenantcore/internal/api/cron"
	v1 "github.com/flexprice/tenantcore/internal/api/v1"
	"github.com/flexprice/tenantcore/internal/auth"
	"github.com/flexprice/tenantcore/internal/domain/directory"
	"github.com/flexprice/tenantcore/internal/domain/plan"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/export"
	"github.com/flexprice/tenantcore/internal/integration"
	"github.com/flexprice/tenantcore/internal/integration/generic"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/ratelimit"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/flexprice/tenantcore/internal/tenancy"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const routerWebhookSecret = "whsec_router"

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
	auth   *auth.Provider
	acme   *domainTenant.Tenant
	globex *domainTenant.Tenant
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	cfg := s.GetConfig()
	cfg.Billing.WebhookSecrets[string(types.BillingProviderInternal)] = routerWebhookSecret
	cfg.Provisioning.StepRetries = 0

	params := service.ServiceParams{
		Logger:             s.GetLogger(),
		Config:             cfg,
		DB:                 s.GetDB(),
		TenantRepo:         stores.TenantRepo,
		SubscriptionRepo:   stores.SubscriptionRepo,
		PlanRepo:           stores.PlanRepo,
		LifecycleEventRepo: stores.LifecycleEventRepo,
		WebhookEventRepo:   stores.WebhookEventRepo,
		AdminAuditRepo:     stores.AdminAuditRepo,
		UsageRepo:          stores.UsageRepo,
		ProvisioningRepo:   stores.ProvisioningRepo,
		AlertRepo:          stores.AlertRepo,
		Directory: service.NewDirectory(
			s.GetDB(),
			s.GetLogger(),
			stores.RoleStore,
			stores.ModuleStore,
			stores.DepartmentStore,
			stores.PositionStore,
			stores.RolePermissionStore,
			stores.UserStore,
		),
		Purgers: service.Purgers{
			types.TableNameUsers:       stores.UserStore,
			types.TableNameDepartments: stores.DepartmentStore,
		},
		Cache:          s.GetCache(),
		EventPublisher: s.GetPublisher(),
		Email:          s.GetEmail(),
		ExportSink:     export.InlineSink{},
		Metrics:        s.GetMetrics(),
		WebhookAdapters: integration.NewRegistry(
			generic.NewAdapter(types.BillingProviderInternal, routerWebhookSecret),
		),
	}

	tenantService := service.NewTenantService(params)
	lifecycleService := service.NewLifecycleService(params)
	provisioningService := service.NewProvisioningService(params)
	planService := service.NewPlanService(params)
	auditService := service.NewAuditService(params)
	exportService := service.NewExportService(params)
	usageService := service.NewUsageService(params)
	log := s.GetLogger()

	handlers := Handlers{
		Tenant:    v1.NewTenantHandler(tenantService, lifecycleService, provisioningService, exportService, log),
		Directory: v1.NewDirectoryHandler(service.NewDirectoryService(params), log),
		Usage:     v1.NewUsageHandler(usageService, service.NewAlertService(params), exportService, log),
		Plan:      v1.NewPlanHandler(planService, log),
		Webhook:   v1.NewWebhookHandler(service.NewBillingWebhookService(params), log),
		Audit:     v1.NewAuditHandler(auditService, log),
		Cron:      cron.NewLifecycleCronHandler(service.NewMonitorService(params), provisioningService, log),
	}

	s.auth = auth.NewProvider(cfg)
	s.router = NewRouter(handlers, RouterParams{
		Config:       cfg,
		Logger:       log,
		Metrics:      s.GetMetrics(),
		Resolver:     tenancy.NewResolver(s.auth, stores.TenantRepo, log),
		AllowList:    isolation.DefaultAllowList(),
		Limiter:      ratelimit.NewDailyLimiter(ratelimit.NewMemoryCounter()),
		TenantRepo:   stores.TenantRepo,
		PlanService:  planService,
		UsageService: usageService,
		AuditService: auditService,
	})

	s.seedPlan()
	s.acme = s.seedTenant("ten_acme", "Acme")
	s.globex = s.seedTenant("ten_globex", "Globex")
	s.seedUser(s.acme.ID, "ada@acme.test")
	s.seedUser(s.globex.ID, "hank@globex.test")
}

func (s *RouterSuite) seedPlan() {
	now := time.Now().UTC()
	s.Require().NoError(s.GetStores().PlanRepo.Create(s.GetContext(), &plan.Plan{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Name:              "starter",
		DisplayName:       "Starter",
		Tier:              1,
		MonthlyPrice:      decimal.NewFromInt(29),
		Currency:          "usd",
		MaxEmployees:      10,
		MaxAPICallsPerDay: 1000,
		Features:          []string{types.FeatureLeave},
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}))
}

func (s *RouterSuite) seedTenant(id, name string) *domainTenant.Tenant {
	now := time.Now().UTC()
	t := &domainTenant.Tenant{
		ID:                 id,
		Name:               name,
		Status:             types.TenantStatusActive,
		AdminEmail:         "admin@" + id + ".test",
		AdminName:          "Admin",
		PlanName:           "starter",
		BillingProvider:    types.BillingProviderInternal,
		SubscriptionActive: true,
		CreatedAt:          now,
		UpdatedAt:          now,
		CreatedBy:          types.DefaultUserID,
		UpdatedBy:          types.DefaultUserID,
	}
	s.Require().NoError(s.GetStores().TenantRepo.Create(s.GetContext(), t))
	return t
}

func (s *RouterSuite) seedUser(tenantID, email string) {
	u := &directory.User{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USER),
		Email:     email,
		Name:      "Test User",
		Status:    types.UserStatusActive,
		Roles:     []string{types.RoleEmployee},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	u.TenantID = tenantID
	s.Require().NoError(s.GetStores().UserStore.Insert(s.GetContext(), u))
}

func (s *RouterSuite) bearer(userID, tenantID, role string) string {
	token, err := s.auth.GenerateToken(userID, tenantID, role)
	s.Require().NoError(err)
	return "Bearer " + token
}

func (s *RouterSuite) do(method, path, authorization string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set(types.HeaderAuthorization, authorization)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out))
}

func (s *RouterSuite) audits() int {
	n, err := s.GetStores().AdminAuditRepo.Count(context.Background(), types.NewDefaultAdminAuditFilter())
	s.Require().NoError(err)
	return n
}

func (s *RouterSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", "", nil, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestSignupReplay() {
	body := map[string]any{
		"name":        "Initech",
		"admin_email": "bill@initech.test",
		"admin_name":  "Bill",
		"plan":        "starter",
	}
	headers := map[string]string{types.HeaderIdempotencyKey: "signup-1"}

	first := s.do(http.MethodPost, "/v1/signup", "", body, headers)
	s.Require().Equal(http.StatusAccepted, first.Code, first.Body.String())

	second := s.do(http.MethodPost, "/v1/signup", "", body, headers)
	s.Require().Equal(http.StatusOK, second.Code, second.Body.String())

	var a, b struct {
		TenantID string `json:"tenant_id"`
		Replayed bool   `json:"replayed"`
	}
	s.decode(first, &a)
	s.decode(second, &b)
	s.Equal(a.TenantID, b.TenantID)
	s.False(a.Replayed)
	s.True(b.Replayed)

	status := s.do(http.MethodGet, "/v1/signup/"+a.TenantID+"/status", "", nil, nil)
	s.Equal(http.StatusOK, status.Code)
}

func (s *RouterSuite) TestTenantReadsStayInsideTenant() {
	w := s.do(http.MethodGet, "/v1/users", s.bearer("user_ada", s.acme.ID, types.RoleClaimMember), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Items []struct {
			Email string `json:"email"`
		} `json:"items"`
	}
	s.decode(w, &resp)
	s.Require().Len(resp.Items, 1)
	s.Equal("ada@acme.test", resp.Items[0].Email)
	s.NotEmpty(w.Header().Get("X-RateLimit-Limit"))
}

func (s *RouterSuite) TestSelectorMismatchIsDenied() {
	w := s.do(http.MethodGet, "/v1/users", s.bearer("user_ada", s.acme.ID, types.RoleClaimMember), nil,
		map[string]string{types.HeaderTenantID: s.globex.ID})
	s.Equal(http.StatusForbidden, w.Code)

	var resp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	s.decode(w, &resp)
	s.Equal("access denied", resp.Error.Message)
	s.NotContains(w.Body.String(), s.globex.ID)
}

func (s *RouterSuite) TestPlatformCallerWithoutElevationSeesNothing() {
	w := s.do(http.MethodGet, "/v1/users", s.bearer("op_1", "", types.RoleClaimPlatformOperator), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.NotContains(w.Body.String(), "ada@acme.test")
	s.NotContains(w.Body.String(), "hank@globex.test")
}

func (s *RouterSuite) TestAdminRouteRequiresOperator() {
	w := s.do(http.MethodGet, "/v1/admin/tenants", s.bearer("user_ada", s.acme.ID, types.RoleClaimAdmin), nil, nil)
	s.Equal(http.StatusForbidden, w.Code)
	s.Zero(s.audits())
}

func (s *RouterSuite) TestOperatorSuspendIsAudited() {
	w := s.do(http.MethodPost, "/v1/admin/tenants/"+s.acme.ID+"/suspend",
		s.bearer("op_1", "", types.RoleClaimPlatformOperator),
		map[string]any{"reason": "payment failed"}, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	stored, err := s.GetStores().TenantRepo.Get(context.Background(), s.acme.ID)
	s.Require().NoError(err)
	s.Equal(types.TenantStatusSuspended, stored.Status)

	rows, err := s.GetStores().AdminAuditRepo.List(context.Background(), types.NewDefaultAdminAuditFilter())
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("op_1", rows[0].OperatorID)
	s.Equal(s.acme.ID, lo.FromPtr(rows[0].TargetTenantID))
	s.True(rows[0].Success)

	s.Run("suspended tenant is gated", func() {
		w := s.do(http.MethodGet, "/v1/users", s.bearer("user_ada", s.acme.ID, types.RoleClaimMember), nil, nil)
		s.Equal(http.StatusForbidden, w.Code)
		s.Contains(w.Body.String(), "subscription_inactive")
	})
}

func (s *RouterSuite) TestOperatorListsAllUsersWhenElevated() {
	w := s.do(http.MethodGet, "/v1/admin/users", s.bearer("op_1", "", types.RoleClaimPlatformOperator), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Body.String(), "ada@acme.test")
	s.Contains(w.Body.String(), "hank@globex.test")
	s.Equal(1, s.audits())
}

func (s *RouterSuite) TestBillingWebhookAlwaysAcknowledged() {
	w := s.do(http.MethodPost, "/v1/webhooks/billing/internal", "",
		map[string]any{"id": "evt_1", "type": "subscription.updated"},
		map[string]string{types.HeaderWebhookSig: "bogus"})
	s.Equal(http.StatusOK, w.Code)

	var ack struct {
		Received bool `json:"received"`
	}
	s.decode(w, &ack)
	s.True(ack.Received)
}
