package subscription

import (
	"context"

	"github.com/flexprice/tenantcore/internal/types"
)

// Repository methods are keyed by tenant explicitly; no call reads across
// tenants except the provider-id lookups used by webhook resolution.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByTenant(ctx context.Context, tenantID string) (*Subscription, error)
	GetByExternalID(ctx context.Context, provider types.BillingProvider, externalSubscriptionID string) (*Subscription, error)
	ListByExternalCustomerID(ctx context.Context, provider types.BillingProvider, externalCustomerID string) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	DeleteByTenant(ctx context.Context, tenantID string) error
}
