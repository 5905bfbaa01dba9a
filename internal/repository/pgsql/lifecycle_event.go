package pgsql

import (
	"context"

	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
)

const lifecycleEventColumns = `id, tenant_id, event_type, previous_status, new_status, reason, actor_type, actor_id, metadata, created_at`

type lifecycleEventRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewLifecycleEventRepository(client postgres.IClient, logger *logger.Logger) lifecycle.Repository {
	return &lifecycleEventRepository{
		client: client,
		logger: logger,
	}
}

func (r *lifecycleEventRepository) Create(ctx context.Context, e *lifecycle.Event) error {
	span := StartRepositorySpan(ctx, "lifecycle_event", "create", map[string]interface{}{
		"tenant_id":  e.TenantID,
		"event_type": e.EventType,
	})
	defer FinishSpan(span)

	metadata, err := marshalJSON(e.Metadata)
	if err != nil {
		return err
	}

	_, err = r.client.Querier(ctx).ExecContext(ctx, `INSERT INTO lifecycle_events (`+lifecycleEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.TenantID, e.EventType, e.PreviousStatus, e.NewStatus, e.Reason, e.ActorType, e.ActorID, metadata, e.CreatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "lifecycle event", map[string]any{"tenant_id": e.TenantID})
	}

	SetSpanSuccess(span)
	return nil
}

func (r *lifecycleEventRepository) ListByTenant(ctx context.Context, tenantID string, filter *types.QueryFilter) ([]*lifecycle.Event, error) {
	span := StartRepositorySpan(ctx, "lifecycle_event", "list_by_tenant", map[string]interface{}{"tenant_id": tenantID})
	defer FinishSpan(span)

	if filter == nil {
		filter = types.NewDefaultQueryFilter()
	}

	w := &where{}
	w.add("tenant_id = $%d", tenantID)
	query := `SELECT ` + lifecycleEventColumns + ` FROM lifecycle_events` + w.sql() +
		w.page(filter, filter.GetSort(), filter.GetOrder(), "created_at")

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "lifecycle event", nil)
	}
	defer rows.Close()

	var out []*lifecycle.Event
	for rows.Next() {
		var (
			e        lifecycle.Event
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.EventType, &e.PreviousStatus, &e.NewStatus,
			&e.Reason, &e.ActorType, &e.ActorID, &metadata, &e.CreatedAt); err != nil {
			SetSpanError(span, err)
			return nil, wrapErr(err, "lifecycle event", nil)
		}
		if err := unmarshalJSON(metadata, &e.Metadata); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "lifecycle event", nil)
	}

	SetSpanSuccess(span)
	return out, nil
}

func (r *lifecycleEventRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lifecycle_events WHERE tenant_id = $1`, tenantID).Scan(&count)
	if err != nil {
		return 0, wrapErr(err, "lifecycle event", nil)
	}
	return count, nil
}
