package pgsql

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/domain/webhookevent"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
)

const webhookEventColumns = `id, provider, external_event_id, event_type, normalized_type, payload, signature,
	signature_valid, tenant_id, subscription_id, resolved_via, resolution_conflict, processed, processed_at,
	error, attempts, received_at, updated_at`

type webhookEventRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewWebhookEventRepository(client postgres.IClient, logger *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{
		client: client,
		logger: logger,
	}
}

func (r *webhookEventRepository) Create(ctx context.Context, e *webhookevent.WebhookEvent) error {
	span := StartRepositorySpan(ctx, "webhook_event", "create", map[string]interface{}{
		"provider":          e.Provider,
		"external_event_id": e.ExternalEventID,
	})
	defer FinishSpan(span)

	payload := []byte(e.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	_, err := r.client.Querier(ctx).ExecContext(ctx, `INSERT INTO webhook_events (`+webhookEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		e.ID, e.Provider, e.ExternalEventID, e.EventType, e.NormalizedType, payload, e.Signature,
		e.SignatureValid, e.TenantID, e.SubscriptionID, e.ResolvedVia, e.ResolutionConflict, e.Processed, e.ProcessedAt,
		e.Error, e.Attempts, e.ReceivedAt, e.UpdatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "webhook event", map[string]any{"external_event_id": e.ExternalEventID})
	}

	SetSpanSuccess(span)
	return nil
}

func (r *webhookEventRepository) Get(ctx context.Context, id string) (*webhookevent.WebhookEvent, error) {
	span := StartRepositorySpan(ctx, "webhook_event", "get", map[string]interface{}{"id": id})
	defer FinishSpan(span)

	e, err := scanWebhookEvent(r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+webhookEventColumns+` FROM webhook_events WHERE id = $1`, id))
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "webhook event", map[string]any{"id": id})
	}

	SetSpanSuccess(span)
	return e, nil
}

func (r *webhookEventRepository) GetByExternalID(ctx context.Context, provider types.BillingProvider, externalEventID string) (*webhookevent.WebhookEvent, error) {
	span := StartRepositorySpan(ctx, "webhook_event", "get_by_external_id", map[string]interface{}{
		"provider":          provider,
		"external_event_id": externalEventID,
	})
	defer FinishSpan(span)

	e, err := scanWebhookEvent(r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+webhookEventColumns+` FROM webhook_events WHERE provider = $1 AND external_event_id = $2`,
		provider, externalEventID))
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "webhook event", map[string]any{"external_event_id": externalEventID})
	}

	SetSpanSuccess(span)
	return e, nil
}

func (r *webhookEventRepository) List(ctx context.Context, filter *types.WebhookEventFilter) ([]*webhookevent.WebhookEvent, error) {
	if filter == nil {
		filter = types.NewWebhookEventFilter()
	}

	span := StartRepositorySpan(ctx, "webhook_event", "list", nil)
	defer FinishSpan(span)

	w := webhookEventWhere(filter)
	query := `SELECT ` + webhookEventColumns + ` FROM webhook_events` + w.sql() +
		w.page(filter.QueryFilter, filter.GetSort(), filter.GetOrder(), "received_at", "updated_at")

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "webhook event", nil)
	}
	defer rows.Close()

	var out []*webhookevent.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			SetSpanError(span, err)
			return nil, wrapErr(err, "webhook event", nil)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "webhook event", nil)
	}

	SetSpanSuccess(span)
	return out, nil
}

func (r *webhookEventRepository) Count(ctx context.Context, filter *types.WebhookEventFilter) (int, error) {
	if filter == nil {
		filter = types.NewWebhookEventFilter()
	}
	w := webhookEventWhere(filter)
	var count int
	if err := r.client.Querier(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM webhook_events`+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, wrapErr(err, "webhook event", nil)
	}
	return count, nil
}

func webhookEventWhere(filter *types.WebhookEventFilter) *where {
	w := &where{}
	if filter.Provider != "" {
		w.add("provider = $%d", filter.Provider)
	}
	if filter.TenantID != "" {
		w.add("tenant_id = $%d", filter.TenantID)
	}
	if filter.EventType != "" {
		w.add("event_type = $%d", filter.EventType)
	}
	if filter.Processed != nil {
		w.add("processed = $%d", *filter.Processed)
	}
	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			w.add("received_at >= $%d", *filter.StartTime)
		}
		if filter.EndTime != nil {
			w.add("received_at < $%d", *filter.EndTime)
		}
	}
	return w
}

func (r *webhookEventRepository) Update(ctx context.Context, e *webhookevent.WebhookEvent) error {
	span := StartRepositorySpan(ctx, "webhook_event", "update", map[string]interface{}{
		"id":        e.ID,
		"processed": e.Processed,
	})
	defer FinishSpan(span)

	e.UpdatedAt = time.Now().UTC()
	res, err := r.client.Querier(ctx).ExecContext(ctx, `UPDATE webhook_events SET
			normalized_type = $2, tenant_id = $3, subscription_id = $4, resolved_via = $5,
			resolution_conflict = $6, processed = $7, processed_at = $8, error = $9, attempts = $10,
			updated_at = $11
		WHERE id = $1`,
		e.ID, e.NormalizedType, e.TenantID, e.SubscriptionID, e.ResolvedVia,
		e.ResolutionConflict, e.Processed, e.ProcessedAt, e.Error, e.Attempts,
		e.UpdatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "webhook event", map[string]any{"id": e.ID})
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("webhook event not found").
			WithHint("Webhook event not found").
			WithReportableDetails(map[string]any{"id": e.ID}).
			Mark(ierr.ErrNotFound)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *webhookEventRepository) GetForUpdate(ctx context.Context, id string) (*webhookevent.WebhookEvent, error) {
	if !r.client.InTx(ctx) {
		return r.Get(ctx, id)
	}

	span := StartRepositorySpan(ctx, "webhook_event", "get_for_update", map[string]interface{}{"id": id})
	defer FinishSpan(span)

	e, err := scanWebhookEvent(r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+webhookEventColumns+` FROM webhook_events WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "webhook event", map[string]any{"id": id})
	}

	SetSpanSuccess(span)
	return e, nil
}

func (r *webhookEventRepository) UpdateUnprocessed(ctx context.Context, e *webhookevent.WebhookEvent) (bool, error) {
	span := StartRepositorySpan(ctx, "webhook_event", "update_unprocessed", map[string]interface{}{"id": e.ID})
	defer FinishSpan(span)

	e.UpdatedAt = time.Now().UTC()
	res, err := r.client.Querier(ctx).ExecContext(ctx, `UPDATE webhook_events SET
			normalized_type = $2, tenant_id = $3, subscription_id = $4, resolved_via = $5,
			resolution_conflict = $6, processed = $7, processed_at = $8, error = $9, attempts = $10,
			updated_at = $11
		WHERE id = $1 AND processed = false`,
		e.ID, e.NormalizedType, e.TenantID, e.SubscriptionID, e.ResolvedVia,
		e.ResolutionConflict, e.Processed, e.ProcessedAt, e.Error, e.Attempts,
		e.UpdatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		return false, wrapErr(err, "webhook event", map[string]any{"id": e.ID})
	}
	n, err := res.RowsAffected()
	if err != nil {
		SetSpanError(span, err)
		return false, wrapErr(err, "webhook event", map[string]any{"id": e.ID})
	}

	SetSpanSuccess(span)
	return n == 1, nil
}

func scanWebhookEvent(row rowScanner) (*webhookevent.WebhookEvent, error) {
	var (
		e       webhookevent.WebhookEvent
		payload []byte
	)
	err := row.Scan(
		&e.ID, &e.Provider, &e.ExternalEventID, &e.EventType, &e.NormalizedType, &payload, &e.Signature,
		&e.SignatureValid, &e.TenantID, &e.SubscriptionID, &e.ResolvedVia, &e.ResolutionConflict, &e.Processed, &e.ProcessedAt,
		&e.Error, &e.Attempts, &e.ReceivedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Payload = payload
	return &e, nil
}
