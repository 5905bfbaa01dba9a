package dto

import (
	"time"

	"github.com/flexprice/tenantcore/internal/domain/adminaudit"
	"github.com/flexprice/tenantcore/internal/domain/alert"
	"github.com/flexprice/tenantcore/internal/domain/directory"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	"github.com/flexprice/tenantcore/internal/domain/subscription"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/domain/usage"
	"github.com/flexprice/tenantcore/internal/export"
)

// TenantExport is the structured dump of every tenant-owned aggregate
type TenantExport struct {
	ExportID        string                      `json:"export_id"`
	GeneratedAt     time.Time                   `json:"generated_at"`
	Tenant          *domainTenant.Tenant        `json:"tenant"`
	Subscription    *subscription.Subscription  `json:"subscription,omitempty"`
	Usage           *usage.Metrics              `json:"usage,omitempty"`
	LifecycleEvents []*lifecycle.Event          `json:"lifecycle_events"`
	Alerts          []*alert.Alert              `json:"alerts"`
	Roles           []*directory.Role           `json:"roles"`
	Modules         []*directory.Module         `json:"modules"`
	Departments     []*directory.Department     `json:"departments"`
	Positions       []*directory.Position       `json:"positions"`
	RolePermissions []*directory.RolePermission `json:"role_permissions"`
	Users           []*UserResponse             `json:"users"`
	AdminActions    []*adminaudit.AdminAudit    `json:"admin_actions,omitempty"`
}

// ExportResponse carries either a download location or the export inline
type ExportResponse struct {
	ExportID string           `json:"export_id"`
	TenantID string           `json:"tenant_id"`
	Location *export.Location `json:"location,omitempty"`
	Data     *TenantExport    `json:"data,omitempty"`
}
