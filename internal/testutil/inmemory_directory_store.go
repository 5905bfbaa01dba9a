package testutil

import (
	"context"

	"github.com/flexprice/tenantcore/internal/domain/directory"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/isolation"
)

// InMemoryEntityStore is the in-memory counterpart of pgsql.EntityStore:
// an unscoped isolation.Store keyed by id with a per-tenant natural key.
type InMemoryEntityStore[T directory.Record] struct {
	*InMemoryStore[T]
}

func NewInMemoryEntityStore[T directory.Record]() *InMemoryEntityStore[T] {
	return &InMemoryEntityStore[T]{InMemoryStore: NewInMemoryStore[T]()}
}

var _ isolation.Store[*directory.Role] = (*InMemoryEntityStore[*directory.Role])(nil)

func (s *InMemoryEntityStore[T]) List(ctx context.Context, q isolation.Query) ([]T, error) {
	items, err := s.InMemoryStore.List(ctx, q, queryFilterFn[T], nil)
	if err != nil {
		return nil, err
	}
	if q.Offset > 0 {
		if q.Offset >= len(items) {
			return []T{}, nil
		}
		items = items[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(items) {
		items = items[:q.Limit]
	}
	return items, nil
}

func (s *InMemoryEntityStore[T]) Count(ctx context.Context, q isolation.Query) (int, error) {
	return s.InMemoryStore.Count(ctx, q, queryFilterFn[T])
}

func (s *InMemoryEntityStore[T]) FindByNaturalKey(ctx context.Context, tenantID, key string) (T, error) {
	items, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item T, _ interface{}) bool {
		return item.GetTenantID() == tenantID && item.NaturalKey() == key
	}, nil)
	if len(items) == 0 {
		var zero T
		return zero, ierr.NewError("entity not found").
			WithReportableDetails(map[string]any{"tenant_id": tenantID, "key": key}).
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

func (s *InMemoryEntityStore[T]) Insert(ctx context.Context, entity T) error {
	if entity.GetTenantID() == "" {
		return ierr.NewError("tenant_id is required").Mark(ierr.ErrInvalidTenant)
	}
	if _, err := s.FindByNaturalKey(ctx, entity.GetTenantID(), entity.NaturalKey()); err == nil {
		return ierr.NewError("entity already exists").
			WithReportableDetails(map[string]any{"key": entity.NaturalKey()}).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, entity.GetID(), entity)
}

func (s *InMemoryEntityStore[T]) Update(ctx context.Context, entity T) error {
	return s.InMemoryStore.Update(ctx, entity.GetID(), entity)
}

func (s *InMemoryEntityStore[T]) DeleteByTenant(ctx context.Context, tenantID string) error {
	items, _ := s.InMemoryStore.List(ctx, isolation.Query{TenantID: tenantID}, queryFilterFn[T], nil)
	for _, item := range items {
		if err := s.InMemoryStore.Delete(ctx, item.GetID()); err != nil {
			return err
		}
	}
	return nil
}

func queryFilterFn[T directory.Record](_ context.Context, item T, filter interface{}) bool {
	q, ok := filter.(isolation.Query)
	if !ok || q.AllTenants {
		return true
	}
	return item.GetTenantID() == q.TenantID
}
