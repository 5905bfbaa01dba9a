package pgsql

import (
	"context"
	"database/sql"
	"errors"

	domainAlert "github.com/flexprice/tenantcore/internal/domain/alert"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

const alertColumns = `id, tenant_id, alert_type, entity_type, entity_id, alert_metric, alert_state, alert_info,
	status, created_at, updated_at, created_by, updated_by`

type alertRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(client postgres.IClient, logger *logger.Logger) domainAlert.Repository {
	return &alertRepository{
		client: client,
		logger: logger,
	}
}

// Create creates a new alert
func (r *alertRepository) Create(ctx context.Context, alert *domainAlert.Alert) error {
	r.logger.Debugw("creating alert", "entity_type", alert.EntityType, "entity_id", alert.EntityID)

	// Start a span for this repository operation
	span := StartRepositorySpan(ctx, "alert", "create", map[string]interface{}{
		"entity_type": alert.EntityType,
		"entity_id":   alert.EntityID,
		"tenant_id":   alert.TenantID,
	})
	defer FinishSpan(span)

	info, err := marshalJSON(alert.AlertInfo)
	if err != nil {
		return err
	}

	_, err = r.client.Querier(ctx).ExecContext(ctx, `INSERT INTO alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		alert.ID, alert.TenantID, alert.AlertType, alert.EntityType, alert.EntityID, alert.AlertMetric,
		alert.AlertState, info, alert.Status, alert.CreatedAt, alert.UpdatedAt, alert.CreatedBy, alert.UpdatedBy,
	)
	if err != nil {
		SetSpanError(span, err)
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An alert with these parameters already exists").
				WithReportableDetails(map[string]interface{}{
					"entity_type": alert.EntityType,
					"entity_id":   alert.EntityID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create alert").
			WithReportableDetails(map[string]interface{}{
				"entity_type": alert.EntityType,
				"entity_id":   alert.EntityID,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

// GetLatestByEntity retrieves the latest alert for a given entity and metric
func (r *alertRepository) GetLatestByEntity(ctx context.Context, tenantID, entityType, entityID string, alertMetric types.AlertMetric) (*domainAlert.Alert, error) {
	// Start a span for this repository operation
	span := StartRepositorySpan(ctx, "alert", "get_latest_by_entity", map[string]interface{}{
		"tenant_id":   tenantID,
		"entity_type": entityType,
		"entity_id":   entityID,
	})
	defer FinishSpan(span)

	row := r.client.Querier(ctx).QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3 AND alert_metric = $4
		ORDER BY created_at DESC LIMIT 1`,
		tenantID, entityType, entityID, alertMetric)

	result, err := scanAlert(row)
	if err != nil {
		SetSpanError(span, err)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No alert found is not an error in this case
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get latest alert").
			WithReportableDetails(map[string]interface{}{
				"tenant_id":   tenantID,
				"entity_type": entityType,
				"entity_id":   entityID,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return result, nil
}

func (r *alertRepository) ExistsForEntity(ctx context.Context, tenantID string, alertType types.AlertType, entityType, entityID string) (bool, error) {
	var exists bool
	err := r.client.Querier(ctx).QueryRowContext(ctx, `SELECT EXISTS (
			SELECT 1 FROM alerts WHERE tenant_id = $1 AND alert_type = $2 AND entity_type = $3 AND entity_id = $4
		)`, tenantID, alertType, entityType, entityID).Scan(&exists)
	if err != nil {
		return false, wrapErr(err, "alert", map[string]any{"tenant_id": tenantID})
	}
	return exists, nil
}

func (r *alertRepository) List(ctx context.Context, filter *types.AlertFilter) ([]*domainAlert.Alert, error) {
	if filter == nil {
		filter = types.NewAlertFilter()
	}

	span := StartRepositorySpan(ctx, "alert", "list", map[string]interface{}{"tenant_id": filter.TenantID})
	defer FinishSpan(span)

	w := alertWhere(filter)
	query := `SELECT ` + alertColumns + ` FROM alerts` + w.sql() +
		w.page(filter.QueryFilter, filter.GetSort(), filter.GetOrder(), "created_at")

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "alert", nil)
	}
	defer rows.Close()

	var out []*domainAlert.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			SetSpanError(span, err)
			return nil, wrapErr(err, "alert", nil)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "alert", nil)
	}

	SetSpanSuccess(span)
	return out, nil
}

func (r *alertRepository) Count(ctx context.Context, filter *types.AlertFilter) (int, error) {
	if filter == nil {
		filter = types.NewAlertFilter()
	}
	w := alertWhere(filter)
	var count int
	if err := r.client.Querier(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, wrapErr(err, "alert", nil)
	}
	return count, nil
}

func alertWhere(filter *types.AlertFilter) *where {
	w := &where{}
	if filter.TenantID != "" {
		w.add("tenant_id = $%d", filter.TenantID)
	}
	if len(filter.AlertTypes) > 0 {
		w.add("alert_type = ANY($%d)", pq.Array(lo.Map(filter.AlertTypes, func(t types.AlertType, _ int) string { return string(t) })))
	}
	if len(filter.EntityTypes) > 0 {
		w.add("entity_type = ANY($%d)", pq.Array(filter.EntityTypes))
	}
	if len(filter.EntityIDs) > 0 {
		w.add("entity_id = ANY($%d)", pq.Array(filter.EntityIDs))
	}
	if len(filter.AlertMetrics) > 0 {
		w.add("alert_metric = ANY($%d)", pq.Array(lo.Map(filter.AlertMetrics, func(m types.AlertMetric, _ int) string { return string(m) })))
	}
	if len(filter.AlertStates) > 0 {
		w.add("alert_state = ANY($%d)", pq.Array(lo.Map(filter.AlertStates, func(s types.AlertState, _ int) string { return string(s) })))
	}

	return w
}

func (r *alertRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	if _, err := r.client.Querier(ctx).ExecContext(ctx, `DELETE FROM alerts WHERE tenant_id = $1`, tenantID); err != nil {
		return wrapErr(err, "alert", map[string]any{"tenant_id": tenantID})
	}
	return nil
}

func scanAlert(row rowScanner) (*domainAlert.Alert, error) {
	var (
		a    domainAlert.Alert
		info []byte
	)
	err := row.Scan(&a.ID, &a.TenantID, &a.AlertType, &a.EntityType, &a.EntityID, &a.AlertMetric, &a.AlertState, &info,
		&a.Status, &a.CreatedAt, &a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(info, &a.AlertInfo); err != nil {
		return nil, err
	}
	return &a, nil
}
