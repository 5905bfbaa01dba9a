package isolation

import (
	"context"
)

// Query is the storage-level read request built by the gate. Callers never
// construct the tenant part themselves.
type Query struct {
	// TenantID restricts rows to one tenant. Ignored when AllTenants is set.
	TenantID   string
	AllTenants bool
	Limit      int
	Offset     int
}

// Store is the raw, unscoped persistence of one entity type. Only the gate
// talks to a Store; everything else goes through the gate.
type Store[T Entity] interface {
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, q Query) (int, error)
	FindByNaturalKey(ctx context.Context, tenantID, key string) (T, error)
	Insert(ctx context.Context, entity T) error
	Update(ctx context.Context, entity T) error
	Delete(ctx context.Context, id string) error
}

// Transactor runs fn in a unit of work. Nested calls join the outer unit so
// a rejection anywhere rolls back the whole batch.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
