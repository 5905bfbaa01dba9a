package testutil

import (
	"context"

	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

// InMemoryTenantStore implements tenant.Repository
type InMemoryTenantStore struct {
	*InMemoryStore[*domainTenant.Tenant]
}

func NewInMemoryTenantStore() *InMemoryTenantStore {
	return &InMemoryTenantStore{
		InMemoryStore: NewInMemoryStore[*domainTenant.Tenant](),
	}
}

func (s *InMemoryTenantStore) Create(ctx context.Context, t *domainTenant.Tenant) error {
	if t.IdempotencyKey != nil {
		if _, err := s.GetByIdempotencyKey(ctx, *t.IdempotencyKey); err == nil {
			return ierr.NewError("tenant already exists").
				WithHint("tenant already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return s.InMemoryStore.Create(ctx, t.ID, t.Copy())
}

func (s *InMemoryTenantStore) Get(ctx context.Context, id string) (*domainTenant.Tenant, error) {
	t, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.Copy(), nil
}

func (s *InMemoryTenantStore) GetForUpdate(ctx context.Context, id string) (*domainTenant.Tenant, error) {
	return s.Get(ctx, id)
}

func (s *InMemoryTenantStore) GetByIdempotencyKey(ctx context.Context, key string) (*domainTenant.Tenant, error) {
	return s.findOne(ctx, func(t *domainTenant.Tenant) bool {
		return t.IdempotencyKey != nil && *t.IdempotencyKey == key
	})
}

func (s *InMemoryTenantStore) GetByBillingCustomerID(ctx context.Context, provider types.BillingProvider, customerID string) (*domainTenant.Tenant, error) {
	return s.findOne(ctx, func(t *domainTenant.Tenant) bool {
		return t.BillingProvider == provider && lo.FromPtr(t.BillingCustomerID) == customerID
	})
}

func (s *InMemoryTenantStore) findOne(ctx context.Context, match func(*domainTenant.Tenant) bool) (*domainTenant.Tenant, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, t *domainTenant.Tenant, _ interface{}) bool {
		return match(t)
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewError("tenant not found").
			WithHint("Tenant not found").
			Mark(ierr.ErrNotFound)
	}
	return items[0].Copy(), nil
}

func (s *InMemoryTenantStore) List(ctx context.Context, filter *types.TenantFilter) ([]*domainTenant.Tenant, error) {
	if filter == nil {
		filter = types.NewTenantFilter()
	}
	return s.InMemoryStore.List(ctx, filter, tenantFilterFn, func(i, j *domainTenant.Tenant) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
}

func (s *InMemoryTenantStore) Count(ctx context.Context, filter *types.TenantFilter) (int, error) {
	if filter == nil {
		filter = types.NewTenantFilter()
	}
	return s.InMemoryStore.Count(ctx, filter, tenantFilterFn)
}

func tenantFilterFn(_ context.Context, t *domainTenant.Tenant, filter interface{}) bool {
	f, ok := filter.(*types.TenantFilter)
	if !ok || f == nil {
		return true
	}
	if len(f.TenantIDs) > 0 && !lo.Contains(f.TenantIDs, t.ID) {
		return false
	}
	if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, t.Status) {
		return false
	}
	if f.Domain != "" && lo.FromPtr(t.Domain) != f.Domain {
		return false
	}
	if f.GracePeriodEndsBefore != nil {
		if t.GracePeriodEndsAt == nil || t.GracePeriodEndsAt.After(*f.GracePeriodEndsBefore) {
			return false
		}
	}
	if f.ScheduledDeletionBefore != nil {
		if t.ScheduledDeletionAt == nil || t.ScheduledDeletionAt.After(*f.ScheduledDeletionBefore) {
			return false
		}
	}
	return true
}

// Update keeps the stored status and lifecycle timestamps, like the SQL
// repository
func (s *InMemoryTenantStore) Update(ctx context.Context, t *domainTenant.Tenant) error {
	current, err := s.InMemoryStore.Get(ctx, t.ID)
	if err != nil {
		return err
	}
	next := t.Copy()
	next.Status = current.Status
	next.FailureReason = current.FailureReason
	next.SuspensionReason = current.SuspensionReason
	next.CancellationReason = current.CancellationReason
	next.ProvisionedAt = current.ProvisionedAt
	next.ProvisioningFailedAt = current.ProvisioningFailedAt
	next.ActivatedAt = current.ActivatedAt
	next.SuspendedAt = current.SuspendedAt
	next.GracePeriodEndsAt = current.GracePeriodEndsAt
	next.CancelledAt = current.CancelledAt
	next.ScheduledDeletionAt = current.ScheduledDeletionAt
	next.DeletedAt = current.DeletedAt
	next.IdempotencyKey = current.IdempotencyKey
	return s.InMemoryStore.Update(ctx, t.ID, next)
}

func (s *InMemoryTenantStore) ApplyTransition(ctx context.Context, t *domainTenant.Tenant, expected types.TenantStatus) error {
	current, err := s.InMemoryStore.Get(ctx, t.ID)
	if err != nil {
		return err
	}
	if current.Status != expected {
		return ierr.NewError("tenant status changed concurrently").
			Mark(ierr.ErrVersionConflict)
	}
	return s.InMemoryStore.Update(ctx, t.ID, t.Copy())
}

func (s *InMemoryTenantStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}
