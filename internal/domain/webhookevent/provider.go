package webhookevent

import (
	"time"

	"github.com/flexprice/tenantcore/internal/types"
)

// ProviderEvent is a billing notification normalized by a provider adapter.
// Identifiers are empty when the payload does not carry them.
type ProviderEvent struct {
	ExternalEventID        string
	RawType                string
	Type                   types.BillingEventType
	OccurredAt             time.Time
	ObjectID               string
	ExternalSubscriptionID string
	ExternalCustomerID     string
	// TenantHint is the tenant id the provider echoes back from metadata
	TenantHint string

	SubscriptionStatus types.SubscriptionStatus
	PlanName           string
	ExternalPriceID    string
	BillingPeriod      types.BillingPeriod
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
	CanceledAt         *time.Time
	FailureMessage     string
	AmountDue          int64
	Currency           string
}
