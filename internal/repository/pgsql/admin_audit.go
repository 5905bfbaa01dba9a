package pgsql

import (
	"context"

	"github.com/flexprice/tenantcore/internal/domain/adminaudit"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
)

const adminAuditColumns = `id, operator_id, action_type, method, endpoint, target_tenant_id, target_entity_id,
	request_payload, status_code, success, error, duration_ms, ip_address, user_agent, request_id, created_at`

type adminAuditRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewAdminAuditRepository(client postgres.IClient, logger *logger.Logger) adminaudit.Repository {
	return &adminAuditRepository{
		client: client,
		logger: logger,
	}
}

func (r *adminAuditRepository) Create(ctx context.Context, a *adminaudit.AdminAudit) error {
	span := StartRepositorySpan(ctx, "admin_audit", "create", map[string]interface{}{
		"operator_id": a.OperatorID,
		"action_type": a.ActionType,
	})
	defer FinishSpan(span)

	_, err := r.client.Querier(ctx).ExecContext(ctx, `INSERT INTO admin_audits (`+adminAuditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		a.ID, a.OperatorID, a.ActionType, a.Method, a.Endpoint, a.TargetTenantID, a.TargetEntityID,
		a.RequestPayload, a.StatusCode, a.Success, a.Error, a.DurationMs, a.IPAddress, a.UserAgent, a.RequestID, a.CreatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "admin audit", map[string]any{"operator_id": a.OperatorID})
	}

	SetSpanSuccess(span)
	return nil
}

func (r *adminAuditRepository) List(ctx context.Context, filter *types.AdminAuditFilter) ([]*adminaudit.AdminAudit, error) {
	if filter == nil {
		filter = types.NewDefaultAdminAuditFilter()
	}

	span := StartRepositorySpan(ctx, "admin_audit", "list", map[string]interface{}{
		"operator_id": filter.OperatorID,
	})
	defer FinishSpan(span)

	w := adminAuditWhere(filter)
	query := `SELECT ` + adminAuditColumns + ` FROM admin_audits` + w.sql() +
		w.page(filter.QueryFilter, filter.GetSort(), filter.GetOrder(), "created_at", "duration_ms", "status_code")

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "admin audit", nil)
	}
	defer rows.Close()

	var out []*adminaudit.AdminAudit
	for rows.Next() {
		var a adminaudit.AdminAudit
		if err := rows.Scan(&a.ID, &a.OperatorID, &a.ActionType, &a.Method, &a.Endpoint, &a.TargetTenantID, &a.TargetEntityID,
			&a.RequestPayload, &a.StatusCode, &a.Success, &a.Error, &a.DurationMs, &a.IPAddress, &a.UserAgent, &a.RequestID, &a.CreatedAt); err != nil {
			SetSpanError(span, err)
			return nil, wrapErr(err, "admin audit", nil)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "admin audit", nil)
	}

	SetSpanSuccess(span)
	return out, nil
}

func (r *adminAuditRepository) Count(ctx context.Context, filter *types.AdminAuditFilter) (int, error) {
	if filter == nil {
		filter = types.NewDefaultAdminAuditFilter()
	}

	w := adminAuditWhere(filter)
	var count int
	if err := r.client.Querier(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_audits`+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, wrapErr(err, "admin audit", nil)
	}
	return count, nil
}

func adminAuditWhere(filter *types.AdminAuditFilter) *where {
	w := &where{}
	if filter.OperatorID != "" {
		w.add("operator_id = $%d", filter.OperatorID)
	}
	if filter.ActionType != "" {
		w.add("action_type = $%d", filter.ActionType)
	}
	if filter.TargetTenantID != "" {
		w.add("target_tenant_id = $%d", filter.TargetTenantID)
	}
	if filter.Success != nil {
		w.add("success = $%d", *filter.Success)
	}
	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			w.add("created_at >= $%d", *filter.StartTime)
		}
		if filter.EndTime != nil {
			w.add("created_at < $%d", *filter.EndTime)
		}
	}
	return w
}
