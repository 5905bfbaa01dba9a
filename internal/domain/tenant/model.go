package tenant

import (
	"time"

	"github.com/flexprice/tenantcore/internal/types"
)

// Tenant is the aggregate root for billing and lifecycle. Status is written
// only by the lifecycle state machine through Repository.ApplyTransition.
type Tenant struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Domain *string            `json:"domain,omitempty"`
	Status types.TenantStatus `json:"status"`

	// denormalized subscription summary
	PlanName           string `json:"plan_name"`
	MaxEmployees       int    `json:"max_employees"`
	SubscriptionActive bool   `json:"subscription_active"`

	AdminEmail        string                `json:"admin_email"`
	AdminName         string                `json:"admin_name"`
	RequestedPlan     string                `json:"requested_plan,omitempty"`
	TrialRequested    bool                  `json:"trial_requested"`
	BillingProvider   types.BillingProvider `json:"billing_provider"`
	BillingCustomerID *string               `json:"billing_customer_id,omitempty"`
	IdempotencyKey    *string               `json:"-"`

	FailureReason      string `json:"failure_reason,omitempty"`
	SuspensionReason   string `json:"suspension_reason,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`

	ProvisionedAt        *time.Time `json:"provisioned_at,omitempty"`
	ProvisioningFailedAt *time.Time `json:"provisioning_failed_at,omitempty"`
	ActivatedAt          *time.Time `json:"activated_at,omitempty"`
	SuspendedAt          *time.Time `json:"suspended_at,omitempty"`
	GracePeriodEndsAt    *time.Time `json:"grace_period_ends_at,omitempty"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty"`
	ScheduledDeletionAt  *time.Time `json:"scheduled_deletion_at,omitempty"`
	DeletedAt            *time.Time `json:"deleted_at,omitempty"`

	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	CreatedBy string            `json:"created_by,omitempty"`
	UpdatedBy string            `json:"updated_by,omitempty"`
}

// IsOperational reports whether tenant-scoped traffic is served
func (t *Tenant) IsOperational() bool {
	return t.Status == types.TenantStatusActive
}

// Copy returns a deep enough copy for transition staging
func (t *Tenant) Copy() *Tenant {
	c := *t
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
