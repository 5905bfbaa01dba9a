package testutil

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/cache"
	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/domain/directory"
	"github.com/flexprice/tenantcore/internal/email"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/metrics"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores holds every in-memory repository a service test can use
type Stores struct {
	TenantRepo         *InMemoryTenantStore
	SubscriptionRepo   *InMemorySubscriptionStore
	PlanRepo           *InMemoryPlanStore
	LifecycleEventRepo *InMemoryLifecycleEventStore
	WebhookEventRepo   *InMemoryWebhookEventStore
	AdminAuditRepo     *InMemoryAdminAuditStore
	UsageRepo          *InMemoryUsageStore
	ProvisioningRepo   *InMemoryProvisioningStore
	AlertRepo          *InMemoryAlertStore

	RoleStore           *InMemoryEntityStore[*directory.Role]
	ModuleStore         *InMemoryEntityStore[*directory.Module]
	DepartmentStore     *InMemoryEntityStore[*directory.Department]
	PositionStore       *InMemoryEntityStore[*directory.Position]
	RolePermissionStore *InMemoryEntityStore[*directory.RolePermission]
	UserStore           *InMemoryEntityStore[*directory.User]
}

// BaseServiceTestSuite wires fresh in-memory infrastructure for every test
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	db        *InMemoryClient
	publisher *RecordingPublisher
	mail      *RecordingEmailClient
	cache     *cache.InMemoryCache
	metrics   *metrics.Metrics
	logger    *logger.Logger
	config    *config.Configuration
}

// test identities
const (
	TestTenantID = "ten_test"
	TestUserID   = "user_test"
)

func (s *BaseServiceTestSuite) SetupTest() {
	s.config = config.GetDefaultConfig()
	s.logger = logger.NewNopLogger()
	s.db = NewInMemoryClient()
	s.publisher = NewRecordingPublisher()
	s.mail = NewRecordingEmailClient()
	s.cache = cache.NewInMemoryCache()
	s.metrics = metrics.NewMetrics()

	ctx := context.Background()
	ctx = types.SetTenantID(ctx, TestTenantID)
	ctx = types.SetUserID(ctx, TestUserID)
	ctx = types.SetRequestID(ctx, types.GenerateUUID())
	s.ctx = ctx

	s.stores = Stores{
		TenantRepo:          NewInMemoryTenantStore(),
		SubscriptionRepo:    NewInMemorySubscriptionStore(),
		PlanRepo:            NewInMemoryPlanStore(),
		LifecycleEventRepo:  NewInMemoryLifecycleEventStore(),
		WebhookEventRepo:    NewInMemoryWebhookEventStore(),
		AdminAuditRepo:      NewInMemoryAdminAuditStore(),
		UsageRepo:           NewInMemoryUsageStore(),
		ProvisioningRepo:    NewInMemoryProvisioningStore(),
		AlertRepo:           NewInMemoryAlertStore(),
		RoleStore:           NewInMemoryEntityStore[*directory.Role](),
		ModuleStore:         NewInMemoryEntityStore[*directory.Module](),
		DepartmentStore:     NewInMemoryEntityStore[*directory.Department](),
		PositionStore:       NewInMemoryEntityStore[*directory.Position](),
		RolePermissionStore: NewInMemoryEntityStore[*directory.RolePermission](),
		UserStore:           NewInMemoryEntityStore[*directory.User](),
	}
}

func (s *BaseServiceTestSuite) GetContext() context.Context { return s.ctx }

func (s *BaseServiceTestSuite) GetStores() Stores { return s.stores }

func (s *BaseServiceTestSuite) GetDB() *InMemoryClient { return s.db }

func (s *BaseServiceTestSuite) GetPublisher() *RecordingPublisher { return s.publisher }

func (s *BaseServiceTestSuite) GetEmailClient() *RecordingEmailClient { return s.mail }

func (s *BaseServiceTestSuite) GetEmail() *email.Email { return email.NewEmail(s.mail, s.logger) }

func (s *BaseServiceTestSuite) GetCache() *cache.InMemoryCache { return s.cache }

func (s *BaseServiceTestSuite) GetMetrics() *metrics.Metrics { return s.metrics }

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger { return s.logger }

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration { return s.config }

// Now is a fixed UTC instant truncated to the second
func (s *BaseServiceTestSuite) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
