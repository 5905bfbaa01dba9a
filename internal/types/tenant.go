package types

import (
	"time"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/samber/lo"
)

type TenantStatus string

const (
	TenantStatusProvisioning       TenantStatus = "provisioning"
	TenantStatusActive             TenantStatus = "active"
	TenantStatusSuspended          TenantStatus = "suspended"
	TenantStatusCancelled          TenantStatus = "cancelled"
	TenantStatusPendingDeletion    TenantStatus = "pending_deletion"
	TenantStatusDeleted            TenantStatus = "deleted"
	TenantStatusProvisioningFailed TenantStatus = "provisioning_failed"
)

var TenantStatuses = []TenantStatus{
	TenantStatusProvisioning,
	TenantStatusActive,
	TenantStatusSuspended,
	TenantStatusCancelled,
	TenantStatusPendingDeletion,
	TenantStatusDeleted,
	TenantStatusProvisioningFailed,
}

func (s TenantStatus) String() string {
	return string(s)
}

func (s TenantStatus) Validate() error {
	if !lo.Contains(TenantStatuses, s) {
		return ierr.NewError("invalid tenant status").
			WithHint("Tenant status is not recognized").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_values": TenantStatuses,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TenantFilter scopes tenant scans. It is used by admin listing and by the
// background monitors.
type TenantFilter struct {
	*QueryFilter
	TenantIDs []string       `json:"tenant_ids,omitempty" form:"tenant_ids"`
	Statuses  []TenantStatus `json:"statuses,omitempty" form:"statuses"`
	Domain    string         `json:"domain,omitempty" form:"domain"`
	// GracePeriodEndsBefore selects tenants whose grace deadline has passed
	GracePeriodEndsBefore *time.Time `json:"-" form:"-"`
	// ScheduledDeletionBefore selects tenants whose deletion is due
	ScheduledDeletionBefore *time.Time `json:"-" form:"-"`
}

func NewTenantFilter() *TenantFilter {
	return &TenantFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *TenantFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	for _, s := range f.Statuses {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return f.QueryFilter.Validate()
}
