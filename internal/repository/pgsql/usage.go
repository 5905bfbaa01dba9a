package pgsql

import (
	"context"
	"fmt"

	"github.com/flexprice/tenantcore/internal/domain/usage"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

const usageColumns = `id, tenant_id, period, employee_count, user_count, department_count, storage_bytes,
	api_requests_total, api_requests_today, api_requests_day, feature_usage, created_at, updated_at`

type usageRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewUsageRepository(client postgres.IClient, logger *logger.Logger) usage.Repository {
	return &usageRepository{
		client: client,
		logger: logger,
	}
}

func (r *usageRepository) Get(ctx context.Context, tenantID, period string) (*usage.Metrics, error) {
	span := StartRepositorySpan(ctx, "usage", "get", map[string]interface{}{
		"tenant_id": tenantID,
		"period":    period,
	})
	defer FinishSpan(span)

	var (
		m        usage.Metrics
		features []byte
	)
	err := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+usageColumns+` FROM usage_metrics WHERE tenant_id = $1 AND period = $2`, tenantID, period).
		Scan(&m.ID, &m.TenantID, &m.Period, &m.EmployeeCount, &m.UserCount, &m.DepartmentCount, &m.StorageBytes,
			&m.APIRequestsTotal, &m.APIRequestsToday, &m.APIRequestsDay, &features, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "usage metrics", map[string]any{"tenant_id": tenantID, "period": period})
	}
	if err := unmarshalJSON(features, &m.FeatureUsage); err != nil {
		return nil, err
	}

	SetSpanSuccess(span)
	return &m, nil
}

// Increment is a single upsert so concurrent writers never lose updates
func (r *usageRepository) Increment(ctx context.Context, tenantID, period string, counter types.UsageCounter, delta int64) error {
	if !lo.Contains(types.UsageCounters, counter) {
		return ierr.NewError("unknown usage counter").
			WithReportableDetails(map[string]any{"counter": counter}).
			Mark(ierr.ErrValidation)
	}

	span := StartRepositorySpan(ctx, "usage", "increment", map[string]interface{}{
		"tenant_id": tenantID,
		"counter":   counter,
	})
	defer FinishSpan(span)

	// counter is one of a closed set of column names
	query := fmt.Sprintf(`INSERT INTO usage_metrics (id, tenant_id, period, %[1]s)
		VALUES ($1, $2, $3, GREATEST($4, 0))
		ON CONFLICT (tenant_id, period)
		DO UPDATE SET %[1]s = GREATEST(usage_metrics.%[1]s + $4, 0), updated_at = now()`, counter)

	if _, err := r.client.Querier(ctx).ExecContext(ctx, query,
		types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE), tenantID, period, delta); err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "usage metrics", map[string]any{"tenant_id": tenantID})
	}

	SetSpanSuccess(span)
	return nil
}

func (r *usageRepository) RecordAPIRequests(ctx context.Context, tenantID, period, day string, today, delta int64) error {
	span := StartRepositorySpan(ctx, "usage", "record_api_requests", map[string]interface{}{
		"tenant_id": tenantID,
		"day":       day,
	})
	defer FinishSpan(span)

	_, err := r.client.Querier(ctx).ExecContext(ctx, `INSERT INTO usage_metrics
			(id, tenant_id, period, api_requests_total, api_requests_today, api_requests_day)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, period)
		DO UPDATE SET
			api_requests_total = usage_metrics.api_requests_total + $4,
			api_requests_today = GREATEST(CASE WHEN usage_metrics.api_requests_day = $6 THEN usage_metrics.api_requests_today ELSE 0 END, $5),
			api_requests_day = $6,
			updated_at = now()`,
		types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE), tenantID, period, delta, today, day)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "usage metrics", map[string]any{"tenant_id": tenantID})
	}

	SetSpanSuccess(span)
	return nil
}

func (r *usageRepository) IncrementFeature(ctx context.Context, tenantID, period, feature string, delta int64) error {
	span := StartRepositorySpan(ctx, "usage", "increment_feature", map[string]interface{}{
		"tenant_id": tenantID,
		"feature":   feature,
	})
	defer FinishSpan(span)

	_, err := r.client.Querier(ctx).ExecContext(ctx, `INSERT INTO usage_metrics (id, tenant_id, period, feature_usage)
		VALUES ($1, $2, $3, jsonb_build_object($4::text, $5::bigint))
		ON CONFLICT (tenant_id, period)
		DO UPDATE SET
			feature_usage = usage_metrics.feature_usage ||
				jsonb_build_object($4::text, COALESCE((usage_metrics.feature_usage->>$4)::bigint, 0) + $5::bigint),
			updated_at = now()`,
		types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE), tenantID, period, feature, delta)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "usage metrics", map[string]any{"tenant_id": tenantID})
	}

	SetSpanSuccess(span)
	return nil
}

func (r *usageRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	if _, err := r.client.Querier(ctx).ExecContext(ctx, `DELETE FROM usage_metrics WHERE tenant_id = $1`, tenantID); err != nil {
		return wrapErr(err, "usage metrics", map[string]any{"tenant_id": tenantID})
	}
	return nil
}
