package pgsql

import (
	"context"
	"time"

	domainSubscription "github.com/flexprice/tenantcore/internal/domain/subscription"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
)

const subscriptionColumns = `id, tenant_id, plan_id, plan_name, provider, external_subscription_id, external_customer_id,
	status, billing_period, current_period_start, current_period_end, trial_start, trial_end,
	canceled_at, last_event_at, created_at, updated_at`

type subscriptionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) domainSubscription.Repository {
	return &subscriptionRepository{
		client: client,
		logger: logger,
	}
}

func (r *subscriptionRepository) Create(ctx context.Context, s *domainSubscription.Subscription) error {
	span := StartRepositorySpan(ctx, "subscription", "create", map[string]interface{}{
		"tenant_id": s.TenantID,
		"plan":      s.PlanName,
	})
	defer FinishSpan(span)

	_, err := r.client.Querier(ctx).ExecContext(ctx, `INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		s.ID, s.TenantID, s.PlanID, s.PlanName, s.Provider, s.ExternalSubscriptionID, s.ExternalCustomerID,
		s.Status, s.BillingPeriod, s.CurrentPeriodStart, s.CurrentPeriodEnd, s.TrialStart, s.TrialEnd,
		s.CanceledAt, s.LastEventAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "subscription", map[string]any{"tenant_id": s.TenantID})
	}

	SetSpanSuccess(span)
	return nil
}

func (r *subscriptionRepository) GetByTenant(ctx context.Context, tenantID string) (*domainSubscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "get_by_tenant", map[string]interface{}{"tenant_id": tenantID})
	defer FinishSpan(span)

	row := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE tenant_id = $1`, tenantID)
	s, err := scanSubscription(row)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "subscription", map[string]any{"tenant_id": tenantID})
	}

	SetSpanSuccess(span)
	return s, nil
}

func (r *subscriptionRepository) GetByExternalID(ctx context.Context, provider types.BillingProvider, externalSubscriptionID string) (*domainSubscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "get_by_external_id", map[string]interface{}{
		"provider":                 provider,
		"external_subscription_id": externalSubscriptionID,
	})
	defer FinishSpan(span)

	row := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider = $1 AND external_subscription_id = $2`,
		provider, externalSubscriptionID)
	s, err := scanSubscription(row)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "subscription", map[string]any{"external_subscription_id": externalSubscriptionID})
	}

	SetSpanSuccess(span)
	return s, nil
}

func (r *subscriptionRepository) ListByExternalCustomerID(ctx context.Context, provider types.BillingProvider, externalCustomerID string) ([]*domainSubscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "list_by_external_customer_id", map[string]interface{}{
		"provider": provider,
	})
	defer FinishSpan(span)

	rows, err := r.client.Querier(ctx).QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider = $1 AND external_customer_id = $2 ORDER BY created_at`,
		provider, externalCustomerID)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "subscription", nil)
	}
	defer rows.Close()

	var out []*domainSubscription.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			SetSpanError(span, err)
			return nil, wrapErr(err, "subscription", nil)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "subscription", nil)
	}

	SetSpanSuccess(span)
	return out, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, s *domainSubscription.Subscription) error {
	span := StartRepositorySpan(ctx, "subscription", "update", map[string]interface{}{
		"subscription_id": s.ID,
		"tenant_id":       s.TenantID,
	})
	defer FinishSpan(span)

	s.UpdatedAt = time.Now().UTC()
	// tenant_id is immutable and never part of SET
	res, err := r.client.Querier(ctx).ExecContext(ctx, `UPDATE subscriptions SET
			plan_id = $3, plan_name = $4, provider = $5, external_subscription_id = $6, external_customer_id = $7,
			status = $8, billing_period = $9, current_period_start = $10, current_period_end = $11,
			trial_start = $12, trial_end = $13, canceled_at = $14, last_event_at = $15, updated_at = $16
		WHERE id = $1 AND tenant_id = $2`,
		s.ID, s.TenantID, s.PlanID, s.PlanName, s.Provider, s.ExternalSubscriptionID, s.ExternalCustomerID,
		s.Status, s.BillingPeriod, s.CurrentPeriodStart, s.CurrentPeriodEnd,
		s.TrialStart, s.TrialEnd, s.CanceledAt, s.LastEventAt, s.UpdatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "subscription", map[string]any{"subscription_id": s.ID})
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			WithReportableDetails(map[string]any{"subscription_id": s.ID}).
			Mark(ierr.ErrNotFound)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *subscriptionRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	span := StartRepositorySpan(ctx, "subscription", "delete_by_tenant", map[string]interface{}{"tenant_id": tenantID})
	defer FinishSpan(span)

	if _, err := r.client.Querier(ctx).ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id = $1`, tenantID); err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "subscription", map[string]any{"tenant_id": tenantID})
	}

	SetSpanSuccess(span)
	return nil
}

func scanSubscription(row rowScanner) (*domainSubscription.Subscription, error) {
	var s domainSubscription.Subscription
	err := row.Scan(
		&s.ID, &s.TenantID, &s.PlanID, &s.PlanName, &s.Provider, &s.ExternalSubscriptionID, &s.ExternalCustomerID,
		&s.Status, &s.BillingPeriod, &s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.TrialStart, &s.TrialEnd,
		&s.CanceledAt, &s.LastEventAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
