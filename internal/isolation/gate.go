package isolation

import (
	"context"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/types"
)

// Gate enforces the tenant boundary in front of a Store. Reads are filtered
// to the scope's tenant unless the scope is elevated; writes are checked
// inside the same transaction as the write itself.
type Gate[T Entity] struct {
	store  Store[T]
	tx     Transactor
	logger *logger.Logger
	name   string
}

func NewGate[T Entity](name string, store Store[T], tx Transactor, log *logger.Logger) *Gate[T] {
	return &Gate[T]{
		store:  store,
		tx:     tx,
		logger: log,
		name:   name,
	}
}

// Get returns the entity if it is visible to the scope. Rows of another
// tenant are reported as not found so their existence does not leak.
func (g *Gate[T]) Get(ctx context.Context, scope Scope, id string) (T, error) {
	var zero T

	entity, err := g.store.Get(ctx, id)
	if err != nil {
		return zero, err
	}

	if !g.visible(scope, entity) {
		return zero, ierr.NewError("entity not found").
			WithHintf("%s not found", g.name).
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return entity, nil
}

// List returns the rows visible to the scope along with their total count.
// A scope without a storage tenant and without elevation sees nothing.
func (g *Gate[T]) List(ctx context.Context, scope Scope, filter types.BaseFilter) ([]T, int, error) {
	q, ok := g.readQuery(scope)
	if !ok {
		return []T{}, 0, nil
	}

	if filter != nil && !filter.IsUnlimited() {
		q.Limit = filter.GetLimit()
		q.Offset = filter.GetOffset()
	}

	items, err := g.store.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	count, err := g.store.Count(ctx, Query{TenantID: q.TenantID, AllTenants: q.AllTenants})
	if err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

// ListTenant lists one tenant's rows. Outside an elevated scope tenantID
// must equal the scope's tenant.
func (g *Gate[T]) ListTenant(ctx context.Context, scope Scope, tenantID string) ([]T, error) {
	if !scope.Elevated() && tenantID != scope.StorageTenant() {
		return nil, g.boundaryViolation(ctx, scope, tenantID, "list")
	}
	return g.store.List(ctx, Query{TenantID: tenantID})
}

// FindByKey looks an entity up by its natural key within the scope's tenant
func (g *Gate[T]) FindByKey(ctx context.Context, scope Scope, key string) (T, error) {
	var zero T
	if err := scope.RequireTenant(); err != nil {
		return zero, err
	}
	return g.store.FindByNaturalKey(ctx, scope.StorageTenant(), key)
}

// Create stamps the scope's tenant onto the entity, overwriting whatever the
// caller supplied, and inserts it.
func (g *Gate[T]) Create(ctx context.Context, scope Scope, entity T) error {
	if err := scope.RequireTenant(); err != nil {
		return err
	}

	return g.tx.WithTx(ctx, func(ctx context.Context) error {
		entity.SetTenantID(scope.StorageTenant())
		return g.store.Insert(ctx, entity)
	})
}

// CreateBatch inserts every entity in one transaction; any failure rolls the
// whole batch back.
func (g *Gate[T]) CreateBatch(ctx context.Context, scope Scope, entities []T) error {
	if err := scope.RequireTenant(); err != nil {
		return err
	}

	return g.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, entity := range entities {
			entity.SetTenantID(scope.StorageTenant())
			if err := g.store.Insert(ctx, entity); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update checks ownership against the persisted row, then rejects any change
// of tenant assignment regardless of elevation. An empty tenant on the
// incoming entity is filled from the persisted row.
func (g *Gate[T]) Update(ctx context.Context, scope Scope, entity T) error {
	_, err := g.UpdateFunc(ctx, scope, entity.GetID(), func(T) (T, error) {
		return entity, nil
	})
	return err
}

// UpdateFunc is Update for read-modify-write callers. apply receives the
// persisted row only once it has passed the ownership check, so a row of
// another tenant is a boundary violation rather than not found.
func (g *Gate[T]) UpdateFunc(ctx context.Context, scope Scope, id string, apply func(current T) (T, error)) (T, error) {
	var updated T
	err := g.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := g.store.Get(ctx, id)
		if err != nil {
			return err
		}

		if !scope.Elevated() && current.GetTenantID() != scope.StorageTenant() {
			return g.boundaryViolation(ctx, scope, current.GetTenantID(), "update")
		}
		owner := current.GetTenantID()

		entity, err := apply(current)
		if err != nil {
			return err
		}

		switch entity.GetTenantID() {
		case "":
			entity.SetTenantID(owner)
		case owner:
		default:
			g.logger.WithContext(ctx).Warnw("rejected tenant reassignment",
				"entity", g.name,
				"id", id,
				"scope_tenant", scope.TenantID,
				"elevated", scope.Elevated(),
			)
			return ierr.NewError("tenant assignment is immutable").
				WithHint("Access denied").
				Mark(ierr.ErrTenantTamper)
		}

		if err := g.store.Update(ctx, entity); err != nil {
			return err
		}
		updated = entity
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return updated, nil
}

// Delete removes the entity after the ownership check. Deletion-protected
// types are refused even for elevated scopes.
func (g *Gate[T]) Delete(ctx context.Context, scope Scope, id string) error {
	return g.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := g.store.Get(ctx, id)
		if err != nil {
			return err
		}

		if !scope.Elevated() && current.GetTenantID() != scope.StorageTenant() {
			return g.boundaryViolation(ctx, scope, current.GetTenantID(), "delete")
		}

		if current.Traits().DeletionProtected {
			return ierr.NewError("entity is deletion protected").
				WithHintf("%s records cannot be deleted", g.name).
				Mark(ierr.ErrInvalidOperation)
		}

		return g.store.Delete(ctx, id)
	})
}

func (g *Gate[T]) readQuery(scope Scope) (Query, bool) {
	if scope.Elevated() {
		return Query{AllTenants: true}, true
	}
	tenantID := scope.StorageTenant()
	if tenantID == "" {
		return Query{}, false
	}
	return Query{TenantID: tenantID}, true
}

func (g *Gate[T]) visible(scope Scope, entity T) bool {
	if scope.Elevated() {
		return true
	}
	tenantID := scope.StorageTenant()
	return tenantID != "" && entity.GetTenantID() == tenantID
}

func (g *Gate[T]) boundaryViolation(ctx context.Context, scope Scope, ownerTenantID, op string) error {
	g.logger.WithContext(ctx).Warnw("cross-tenant access rejected",
		"entity", g.name,
		"operation", op,
		"scope_tenant", scope.TenantID,
		"owner_tenant", ownerTenantID,
		"actor", scope.ActorID,
	)
	return ierr.NewError("cross-tenant access").
		WithHint("Access denied").
		Mark(ierr.ErrBoundaryViolation)
}
