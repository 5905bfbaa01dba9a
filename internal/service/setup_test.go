package service

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/domain/directory"
	"github.com/flexprice/tenantcore/internal/domain/plan"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/export"
	"github.com/flexprice/tenantcore/internal/integration"
	"github.com/flexprice/tenantcore/internal/integration/generic"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const testWebhookSecret = "whsec_test"

// newTestServiceParams wires every service dependency to the suite's
// in-memory infrastructure
func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	cfg := s.GetConfig()
	cfg.Billing.WebhookSecrets[string(types.BillingProviderInternal)] = testWebhookSecret
	// failures in tests are deterministic, retrying only slows them down
	cfg.Provisioning.StepRetries = 0

	return ServiceParams{
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
		Directory: NewDirectory(
			s.GetDB(),
			s.GetLogger(),
			stores.RoleStore,
			stores.ModuleStore,
			stores.DepartmentStore,
			stores.PositionStore,
			stores.RolePermissionStore,
			stores.UserStore,
		),
		Purgers: Purgers{
			types.TableNameRolePermissions:  stores.RolePermissionStore,
			types.TableNameUsers:            stores.UserStore,
			types.TableNamePositions:        stores.PositionStore,
			types.TableNameDepartments:      stores.DepartmentStore,
			types.TableNameModules:          stores.ModuleStore,
			types.TableNameRoles:            stores.RoleStore,
			types.TableNameAlerts:           stores.AlertRepo,
			types.TableNameUsageMetrics:     stores.UsageRepo,
			types.TableNameProvisioningRuns: stores.ProvisioningRepo,
			types.TableNameSubscriptions:    stores.SubscriptionRepo,
		},
		Cache:          s.GetCache(),
		EventPublisher: s.GetPublisher(),
		Email:          s.GetEmail(),
		ExportSink:     export.InlineSink{},
		Metrics:        s.GetMetrics(),
		WebhookAdapters: integration.NewRegistry(
			generic.NewAdapter(types.BillingProviderInternal, testWebhookSecret),
		),
	}
}

// seedPlans stores a starter and a growth plan; only growth carries exports
func seedPlans(ctx context.Context, s *testutil.BaseServiceTestSuite) (*plan.Plan, *plan.Plan) {
	now := time.Now().UTC()
	starter := &plan.Plan{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Name:              "starter",
		DisplayName:       "Starter",
		Tier:              1,
		MonthlyPrice:      decimal.NewFromInt(29),
		Currency:          "usd",
		MaxEmployees:      10,
		MaxStorageBytes:   1 << 30,
		MaxAPICallsPerDay: 1000,
		Features:          []string{types.FeatureAttendance, types.FeatureLeave},
		TrialDays:         14,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	growth := &plan.Plan{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Name:              "growth",
		DisplayName:       "Growth",
		Tier:              2,
		MonthlyPrice:      decimal.NewFromInt(99),
		Currency:          "usd",
		MaxEmployees:      100,
		MaxStorageBytes:   10 << 30,
		MaxAPICallsPerDay: 10000,
		Features:          []string{types.FeatureAttendance, types.FeatureLeave, types.FeatureDataExport, types.FeatureReports},
		ExternalPriceID:   lo.ToPtr("price_growth"),
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.Require().NoError(s.GetStores().PlanRepo.Create(ctx, starter))
	s.Require().NoError(s.GetStores().PlanRepo.Create(ctx, growth))
	return starter, growth
}

// seedTenant stores a tenant directly in the given status
func seedTenant(ctx context.Context, s *testutil.BaseServiceTestSuite, status types.TenantStatus, planName string) *domainTenant.Tenant {
	now := time.Now().UTC()
	t := &domainTenant.Tenant{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TENANT),
		Name:               "Acme " + types.GenerateUUID()[:6],
		Status:             status,
		AdminEmail:         "admin@acme.test",
		AdminName:          "Ada Admin",
		PlanName:           planName,
		RequestedPlan:      planName,
		BillingProvider:    types.BillingProviderInternal,
		SubscriptionActive: status == types.TenantStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
		CreatedBy:          types.DefaultUserID,
		UpdatedBy:          types.DefaultUserID,
	}
	s.Require().NoError(s.GetStores().TenantRepo.Create(ctx, t))
	return t
}

// seedUser stores an active directory user for tenantID
func seedUser(ctx context.Context, s *testutil.BaseServiceTestSuite, tenantID, email string) *directory.User {
	u := &directory.User{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USER),
		Email:     email,
		Name:      "Test User",
		Status:    types.UserStatusActive,
		Roles:     []string{types.RoleEmployee},
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	u.TenantID = tenantID
	s.Require().NoError(s.GetStores().UserStore.Insert(ctx, u))
	return u
}
