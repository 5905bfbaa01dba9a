package service

import (
	"context"

	"github.com/flexprice/tenantcore/internal/cache"
	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/domain/adminaudit"
	"github.com/flexprice/tenantcore/internal/domain/alert"
	"github.com/flexprice/tenantcore/internal/domain/directory"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	"github.com/flexprice/tenantcore/internal/domain/plan"
	"github.com/flexprice/tenantcore/internal/domain/provisioning"
	"github.com/flexprice/tenantcore/internal/domain/subscription"
	"github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/domain/usage"
	"github.com/flexprice/tenantcore/internal/domain/webhookevent"
	"github.com/flexprice/tenantcore/internal/email"
	"github.com/flexprice/tenantcore/internal/export"
	"github.com/flexprice/tenantcore/internal/integration"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/metrics"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/flexprice/tenantcore/internal/webhook"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	fx.In

	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	TenantRepo         tenant.Repository
	SubscriptionRepo   subscription.Repository
	PlanRepo           plan.Repository
	LifecycleEventRepo lifecycle.Repository
	WebhookEventRepo   webhookevent.Repository
	AdminAuditRepo     adminaudit.Repository
	UsageRepo          usage.Repository
	ProvisioningRepo   provisioning.Repository
	AlertRepo          alert.Repository

	// Directory is the gated access to tenant-owned directory records
	Directory Directory
	// Purgers remove a tenant's rows on hard delete, keyed by table
	Purgers Purgers

	Cache           cache.Cache
	EventPublisher  webhook.Publisher
	Email           *email.Email
	ExportSink      export.Sink
	Metrics         *metrics.Metrics
	WebhookAdapters *integration.Registry
}

// Directory groups the isolation gates of the directory collaborators
type Directory struct {
	Roles           *isolation.Gate[*directory.Role]
	Modules         *isolation.Gate[*directory.Module]
	Departments     *isolation.Gate[*directory.Department]
	Positions       *isolation.Gate[*directory.Position]
	RolePermissions *isolation.Gate[*directory.RolePermission]
	Users           *isolation.Gate[*directory.User]
}

// TenantDataPurger deletes every row one tenant owns in one table
type TenantDataPurger interface {
	DeleteByTenant(ctx context.Context, tenantID string) error
}

type Purgers map[types.TableName]TenantDataPurger

// NewDirectory builds the gates over the given stores
func NewDirectory(
	db isolation.Transactor,
	log *logger.Logger,
	roles isolation.Store[*directory.Role],
	modules isolation.Store[*directory.Module],
	departments isolation.Store[*directory.Department],
	positions isolation.Store[*directory.Position],
	rolePermissions isolation.Store[*directory.RolePermission],
	users isolation.Store[*directory.User],
) Directory {
	return Directory{
		Roles:           isolation.NewGate("role", roles, db, log),
		Modules:         isolation.NewGate("module", modules, db, log),
		Departments:     isolation.NewGate("department", departments, db, log),
		Positions:       isolation.NewGate("position", positions, db, log),
		RolePermissions: isolation.NewGate("role permission", rolePermissions, db, log),
		Users:           isolation.NewGate("user", users, db, log),
	}
}
