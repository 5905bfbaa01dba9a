package pgsql

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/flexprice/tenantcore/internal/domain/directory"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
)

// EntityStore persists a directory record type in a table shaped as
// (id, tenant_id, natural_key, attributes, created_at, updated_at). It is
// the raw isolation.Store behind a gate and applies no tenant policy itself.
type EntityStore[T directory.Record] struct {
	client postgres.IClient
	logger *logger.Logger
	table  types.TableName
	newT   func() T
}

func NewEntityStore[T directory.Record](client postgres.IClient, logger *logger.Logger, table types.TableName, newT func() T) *EntityStore[T] {
	return &EntityStore[T]{
		client: client,
		logger: logger,
		table:  table,
		newT:   newT,
	}
}

func (s *EntityStore[T]) Table() types.TableName {
	return s.table
}

func (s *EntityStore[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	span := StartRepositorySpan(ctx, string(s.table), "get", map[string]interface{}{"id": id})
	defer FinishSpan(span)

	row := s.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT id, tenant_id, attributes FROM `+string(s.table)+` WHERE id = $1`, id)
	entity, err := s.scan(row)
	if err != nil {
		SetSpanError(span, err)
		return zero, wrapErr(err, string(s.table), map[string]any{"id": id})
	}

	SetSpanSuccess(span)
	return entity, nil
}

func (s *EntityStore[T]) List(ctx context.Context, q isolation.Query) ([]T, error) {
	span := StartRepositorySpan(ctx, string(s.table), "list", map[string]interface{}{
		"tenant_id":   q.TenantID,
		"all_tenants": q.AllTenants,
	})
	defer FinishSpan(span)

	w := s.where(q)
	query := `SELECT id, tenant_id, attributes FROM ` + string(s.table) + w.sql() + ` ORDER BY created_at, id`
	if q.Limit > 0 {
		w.args = append(w.args, q.Limit, q.Offset)
		query += ` LIMIT $` + strconv.Itoa(len(w.args)-1) + ` OFFSET $` + strconv.Itoa(len(w.args))
	}

	rows, err := s.client.Querier(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, string(s.table), nil)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		entity, err := s.scan(rows)
		if err != nil {
			SetSpanError(span, err)
			return nil, wrapErr(err, string(s.table), nil)
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, string(s.table), nil)
	}

	SetSpanSuccess(span)
	return out, nil
}

func (s *EntityStore[T]) Count(ctx context.Context, q isolation.Query) (int, error) {
	w := s.where(q)
	var count int
	if err := s.client.Querier(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM `+string(s.table)+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, wrapErr(err, string(s.table), nil)
	}
	return count, nil
}

// where never produces an unfiltered query unless AllTenants is explicit
func (s *EntityStore[T]) where(q isolation.Query) *where {
	w := &where{}
	if !q.AllTenants {
		w.add("tenant_id = $%d", q.TenantID)
	}
	return w
}

func (s *EntityStore[T]) FindByNaturalKey(ctx context.Context, tenantID, key string) (T, error) {
	var zero T
	row := s.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT id, tenant_id, attributes FROM `+string(s.table)+` WHERE tenant_id = $1 AND natural_key = $2`,
		tenantID, key)
	entity, err := s.scan(row)
	if err != nil {
		return zero, wrapErr(err, string(s.table), map[string]any{"key": key})
	}
	return entity, nil
}

func (s *EntityStore[T]) Insert(ctx context.Context, entity T) error {
	span := StartRepositorySpan(ctx, string(s.table), "insert", map[string]interface{}{
		"id":        entity.GetID(),
		"tenant_id": entity.GetTenantID(),
	})
	defer FinishSpan(span)

	if entity.GetTenantID() == "" {
		return ierr.NewError("entity has no tenant").
			Mark(ierr.ErrInvalidTenant)
	}

	attrs, err := json.Marshal(entity)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}

	created, updated := entity.Timestamps()
	_, err = s.client.Querier(ctx).ExecContext(ctx, `INSERT INTO `+string(s.table)+`
		(id, tenant_id, natural_key, attributes, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		entity.GetID(), entity.GetTenantID(), entity.NaturalKey(), attrs, orNow(created), orNow(updated))
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, string(s.table), map[string]any{"key": entity.NaturalKey()})
	}

	SetSpanSuccess(span)
	return nil
}

// Update rewrites attributes only; tenant_id is never part of SET
func (s *EntityStore[T]) Update(ctx context.Context, entity T) error {
	span := StartRepositorySpan(ctx, string(s.table), "update", map[string]interface{}{"id": entity.GetID()})
	defer FinishSpan(span)

	attrs, err := json.Marshal(entity)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}

	res, err := s.client.Querier(ctx).ExecContext(ctx, `UPDATE `+string(s.table)+`
		SET natural_key = $3, attributes = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`,
		entity.GetID(), entity.GetTenantID(), entity.NaturalKey(), attrs)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, string(s.table), map[string]any{"id": entity.GetID()})
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("entity not found").
			WithHintf("%s not found", s.table).
			Mark(ierr.ErrNotFound)
	}

	SetSpanSuccess(span)
	return nil
}

func (s *EntityStore[T]) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Querier(ctx).ExecContext(ctx, `DELETE FROM `+string(s.table)+` WHERE id = $1`, id); err != nil {
		return wrapErr(err, string(s.table), map[string]any{"id": id})
	}
	return nil
}

// DeleteByTenant is used only by the hard-delete cascade
func (s *EntityStore[T]) DeleteByTenant(ctx context.Context, tenantID string) error {
	if _, err := s.client.Querier(ctx).ExecContext(ctx, `DELETE FROM `+string(s.table)+` WHERE tenant_id = $1`, tenantID); err != nil {
		return wrapErr(err, string(s.table), map[string]any{"tenant_id": tenantID})
	}
	return nil
}

// scan trusts the tenant_id column over whatever the attributes document
// carries
func (s *EntityStore[T]) scan(row rowScanner) (T, error) {
	var (
		zero     T
		id       string
		tenantID string
		attrs    []byte
	)
	if err := row.Scan(&id, &tenantID, &attrs); err != nil {
		return zero, err
	}

	entity := s.newT()
	if err := json.Unmarshal(attrs, entity); err != nil {
		return zero, err
	}
	entity.SetTenantID(tenantID)
	return entity, nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
