package subscription

import (
	"time"

	"github.com/flexprice/tenantcore/internal/types"
)

// Subscription is the 1:1 billing record of a tenant
type Subscription struct {
	ID                     string                   `json:"id"`
	TenantID               string                   `json:"tenant_id"`
	PlanID                 string                   `json:"plan_id"`
	PlanName               string                   `json:"plan_name"`
	Provider               types.BillingProvider    `json:"provider"`
	ExternalSubscriptionID *string                  `json:"external_subscription_id,omitempty"`
	ExternalCustomerID     *string                  `json:"external_customer_id,omitempty"`
	Status                 types.SubscriptionStatus `json:"status"`
	BillingPeriod          types.BillingPeriod      `json:"billing_period"`
	CurrentPeriodStart     *time.Time               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time               `json:"current_period_end,omitempty"`
	TrialStart             *time.Time               `json:"trial_start,omitempty"`
	TrialEnd               *time.Time               `json:"trial_end,omitempty"`
	CanceledAt             *time.Time               `json:"canceled_at,omitempty"`
	// LastEventAt is the provider time of the newest event applied, used to
	// ignore events delivered out of order
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsStale reports whether an event stamped at eventAt predates the newest
// event already applied
func (s *Subscription) IsStale(eventAt time.Time) bool {
	return s.LastEventAt != nil && eventAt.Before(*s.LastEventAt)
}
