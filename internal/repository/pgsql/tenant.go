package pgsql

import (
	"context"
	"time"

	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/lib/pq"
)

const tenantColumns = `id, name, domain, status, plan_name, max_employees, subscription_active,
	admin_email, admin_name, requested_plan, trial_requested, billing_provider, billing_customer_id,
	idempotency_key, failure_reason, suspension_reason, cancellation_reason,
	provisioned_at, provisioning_failed_at, activated_at, suspended_at, grace_period_ends_at,
	cancelled_at, scheduled_deletion_at, deleted_at, metadata, created_at, updated_at, created_by, updated_by`

type tenantRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewTenantRepository(client postgres.IClient, logger *logger.Logger) domainTenant.Repository {
	return &tenantRepository{
		client: client,
		logger: logger,
	}
}

func (r *tenantRepository) Create(ctx context.Context, t *domainTenant.Tenant) error {
	span := StartRepositorySpan(ctx, "tenant", "create", map[string]interface{}{
		"tenant_id": t.ID,
	})
	defer FinishSpan(span)

	metadata, err := marshalJSON(t.Metadata)
	if err != nil {
		return err
	}

	_, err = r.client.Querier(ctx).ExecContext(ctx, `INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)`,
		t.ID, t.Name, t.Domain, t.Status, t.PlanName, t.MaxEmployees, t.SubscriptionActive,
		t.AdminEmail, t.AdminName, t.RequestedPlan, t.TrialRequested, t.BillingProvider, t.BillingCustomerID,
		t.IdempotencyKey, t.FailureReason, t.SuspensionReason, t.CancellationReason,
		t.ProvisionedAt, t.ProvisioningFailedAt, t.ActivatedAt, t.SuspendedAt, t.GracePeriodEndsAt,
		t.CancelledAt, t.ScheduledDeletionAt, t.DeletedAt, metadata, t.CreatedAt, t.UpdatedAt, t.CreatedBy, t.UpdatedBy,
	)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "tenant", map[string]any{"tenant_id": t.ID})
	}

	SetSpanSuccess(span)
	return nil
}

func (r *tenantRepository) Get(ctx context.Context, id string) (*domainTenant.Tenant, error) {
	span := StartRepositorySpan(ctx, "tenant", "get", map[string]interface{}{"tenant_id": id})
	defer FinishSpan(span)

	row := r.client.Querier(ctx).QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	t, err := scanTenant(row)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "tenant", map[string]any{"tenant_id": id})
	}

	SetSpanSuccess(span)
	return t, nil
}

func (r *tenantRepository) GetForUpdate(ctx context.Context, id string) (*domainTenant.Tenant, error) {
	if !r.client.InTx(ctx) {
		return r.Get(ctx, id)
	}

	span := StartRepositorySpan(ctx, "tenant", "get_for_update", map[string]interface{}{"tenant_id": id})
	defer FinishSpan(span)

	row := r.client.Querier(ctx).QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1 FOR UPDATE`, id)
	t, err := scanTenant(row)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "tenant", map[string]any{"tenant_id": id})
	}

	SetSpanSuccess(span)
	return t, nil
}

func (r *tenantRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domainTenant.Tenant, error) {
	span := StartRepositorySpan(ctx, "tenant", "get_by_idempotency_key", nil)
	defer FinishSpan(span)

	row := r.client.Querier(ctx).QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE idempotency_key = $1`, key)
	t, err := scanTenant(row)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "tenant", nil)
	}

	SetSpanSuccess(span)
	return t, nil
}

func (r *tenantRepository) GetByBillingCustomerID(ctx context.Context, provider types.BillingProvider, customerID string) (*domainTenant.Tenant, error) {
	span := StartRepositorySpan(ctx, "tenant", "get_by_billing_customer_id", map[string]interface{}{
		"provider": provider,
	})
	defer FinishSpan(span)

	row := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE billing_provider = $1 AND billing_customer_id = $2`,
		provider, customerID)
	t, err := scanTenant(row)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "tenant", map[string]any{"billing_customer_id": customerID})
	}

	SetSpanSuccess(span)
	return t, nil
}

func (r *tenantRepository) List(ctx context.Context, filter *types.TenantFilter) ([]*domainTenant.Tenant, error) {
	if filter == nil {
		filter = types.NewTenantFilter()
	}

	span := StartRepositorySpan(ctx, "tenant", "list", map[string]interface{}{
		"statuses": filter.Statuses,
	})
	defer FinishSpan(span)

	w := tenantWhere(filter)
	query := `SELECT ` + tenantColumns + ` FROM tenants` + w.sql() +
		w.page(filter.QueryFilter, filter.GetSort(), filter.GetOrder(), "created_at", "updated_at", "name", "grace_period_ends_at", "scheduled_deletion_at")

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "tenant", nil)
	}
	defer rows.Close()

	var out []*domainTenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			SetSpanError(span, err)
			return nil, wrapErr(err, "tenant", nil)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "tenant", nil)
	}

	SetSpanSuccess(span)
	return out, nil
}

func (r *tenantRepository) Count(ctx context.Context, filter *types.TenantFilter) (int, error) {
	if filter == nil {
		filter = types.NewTenantFilter()
	}

	span := StartRepositorySpan(ctx, "tenant", "count", nil)
	defer FinishSpan(span)

	w := tenantWhere(filter)
	var count int
	if err := r.client.Querier(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`+w.sql(), w.args...).Scan(&count); err != nil {
		SetSpanError(span, err)
		return 0, wrapErr(err, "tenant", nil)
	}

	SetSpanSuccess(span)
	return count, nil
}

func tenantWhere(filter *types.TenantFilter) *where {
	w := &where{}
	if len(filter.TenantIDs) > 0 {
		w.add("id = ANY($%d)", pq.Array(filter.TenantIDs))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		w.add("status = ANY($%d)", pq.Array(statuses))
	}
	if filter.Domain != "" {
		w.add("domain = $%d", filter.Domain)
	}
	if filter.GracePeriodEndsBefore != nil {
		w.add("grace_period_ends_at <= $%d", *filter.GracePeriodEndsBefore)
	}
	if filter.ScheduledDeletionBefore != nil {
		w.add("scheduled_deletion_at <= $%d", *filter.ScheduledDeletionBefore)
	}
	return w
}

// Update never touches status or the lifecycle timestamps
func (r *tenantRepository) Update(ctx context.Context, t *domainTenant.Tenant) error {
	span := StartRepositorySpan(ctx, "tenant", "update", map[string]interface{}{"tenant_id": t.ID})
	defer FinishSpan(span)

	metadata, err := marshalJSON(t.Metadata)
	if err != nil {
		return err
	}

	t.UpdatedAt = time.Now().UTC()
	res, err := r.client.Querier(ctx).ExecContext(ctx, `UPDATE tenants SET
			name = $2, domain = $3, plan_name = $4, max_employees = $5, subscription_active = $6,
			admin_email = $7, admin_name = $8, billing_provider = $9, billing_customer_id = $10,
			metadata = $11, updated_at = $12, updated_by = $13
		WHERE id = $1`,
		t.ID, t.Name, t.Domain, t.PlanName, t.MaxEmployees, t.SubscriptionActive,
		t.AdminEmail, t.AdminName, t.BillingProvider, t.BillingCustomerID,
		metadata, t.UpdatedAt, t.UpdatedBy,
	)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "tenant", map[string]any{"tenant_id": t.ID})
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("tenant not found").
			WithHint("Tenant not found").
			WithReportableDetails(map[string]any{"tenant_id": t.ID}).
			Mark(ierr.ErrNotFound)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *tenantRepository) ApplyTransition(ctx context.Context, t *domainTenant.Tenant, expected types.TenantStatus) error {
	span := StartRepositorySpan(ctx, "tenant", "apply_transition", map[string]interface{}{
		"tenant_id": t.ID,
		"from":      expected,
		"to":        t.Status,
	})
	defer FinishSpan(span)

	res, err := r.client.Querier(ctx).ExecContext(ctx, `UPDATE tenants SET
			status = $3, failure_reason = $4, suspension_reason = $5, cancellation_reason = $6,
			provisioned_at = $7, provisioning_failed_at = $8, activated_at = $9, suspended_at = $10,
			grace_period_ends_at = $11, cancelled_at = $12, scheduled_deletion_at = $13, deleted_at = $14,
			subscription_active = $15, updated_at = $16, updated_by = $17
		WHERE id = $1 AND status = $2`,
		t.ID, expected, t.Status, t.FailureReason, t.SuspensionReason, t.CancellationReason,
		t.ProvisionedAt, t.ProvisioningFailedAt, t.ActivatedAt, t.SuspendedAt,
		t.GracePeriodEndsAt, t.CancelledAt, t.ScheduledDeletionAt, t.DeletedAt,
		t.SubscriptionActive, t.UpdatedAt, t.UpdatedBy,
	)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "tenant", map[string]any{"tenant_id": t.ID})
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("tenant status changed concurrently").
			WithHint("Tenant state changed, reload and retry").
			WithReportableDetails(map[string]any{
				"tenant_id": t.ID,
				"expected":  expected,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *tenantRepository) Delete(ctx context.Context, id string) error {
	span := StartRepositorySpan(ctx, "tenant", "delete", map[string]interface{}{"tenant_id": id})
	defer FinishSpan(span)

	if _, err := r.client.Querier(ctx).ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id); err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "tenant", map[string]any{"tenant_id": id})
	}

	SetSpanSuccess(span)
	return nil
}

func scanTenant(row rowScanner) (*domainTenant.Tenant, error) {
	var (
		t        domainTenant.Tenant
		metadata []byte
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.Domain, &t.Status, &t.PlanName, &t.MaxEmployees, &t.SubscriptionActive,
		&t.AdminEmail, &t.AdminName, &t.RequestedPlan, &t.TrialRequested, &t.BillingProvider, &t.BillingCustomerID,
		&t.IdempotencyKey, &t.FailureReason, &t.SuspensionReason, &t.CancellationReason,
		&t.ProvisionedAt, &t.ProvisioningFailedAt, &t.ActivatedAt, &t.SuspendedAt, &t.GracePeriodEndsAt,
		&t.CancelledAt, &t.ScheduledDeletionAt, &t.DeletedAt, &metadata, &t.CreatedAt, &t.UpdatedAt, &t.CreatedBy, &t.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(metadata, &t.Metadata); err != nil {
		return nil, err
	}
	return &t, nil
}
