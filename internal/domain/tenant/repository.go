package tenant

import (
	"context"

	"github.com/flexprice/tenantcore/internal/types"
)

type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	Get(ctx context.Context, id string) (*Tenant, error)
	// GetForUpdate reads the row with a row lock when inside a transaction
	GetForUpdate(ctx context.Context, id string) (*Tenant, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Tenant, error)
	GetByBillingCustomerID(ctx context.Context, provider types.BillingProvider, customerID string) (*Tenant, error)
	List(ctx context.Context, filter *types.TenantFilter) ([]*Tenant, error)
	Count(ctx context.Context, filter *types.TenantFilter) (int, error)
	// Update writes every column except status and the lifecycle timestamps
	Update(ctx context.Context, t *Tenant) error
	// ApplyTransition persists status and lifecycle columns only if the
	// stored status still equals expected. A stale expected status yields
	// ErrVersionConflict.
	ApplyTransition(ctx context.Context, t *Tenant, expected types.TenantStatus) error
	Delete(ctx context.Context, id string) error
}
