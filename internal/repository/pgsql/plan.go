package pgsql

import (
	"context"
	"time"

	domainPlan "github.com/flexprice/tenantcore/internal/domain/plan"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/postgres"
)

const planColumns = `id, name, display_name, tier, monthly_price, currency, max_employees, max_storage_bytes,
	max_api_calls_per_day, features, trial_days, external_price_id, active, created_at, updated_at`

type planRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewPlanRepository(client postgres.IClient, logger *logger.Logger) domainPlan.Repository {
	return &planRepository{
		client: client,
		logger: logger,
	}
}

func (r *planRepository) Create(ctx context.Context, p *domainPlan.Plan) error {
	span := StartRepositorySpan(ctx, "plan", "create", map[string]interface{}{"name": p.Name})
	defer FinishSpan(span)

	features, err := marshalJSON(p.Features)
	if err != nil {
		return err
	}

	_, err = r.client.Querier(ctx).ExecContext(ctx, `INSERT INTO plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.Name, p.DisplayName, p.Tier, p.MonthlyPrice, p.Currency, p.MaxEmployees, p.MaxStorageBytes,
		p.MaxAPICallsPerDay, features, p.TrialDays, p.ExternalPriceID, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "plan", map[string]any{"name": p.Name})
	}

	SetSpanSuccess(span)
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*domainPlan.Plan, error) {
	span := StartRepositorySpan(ctx, "plan", "get", map[string]interface{}{"plan_id": id})
	defer FinishSpan(span)

	p, err := scanPlan(r.client.Querier(ctx).QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "plan", map[string]any{"plan_id": id})
	}

	SetSpanSuccess(span)
	return p, nil
}

func (r *planRepository) GetByName(ctx context.Context, name string) (*domainPlan.Plan, error) {
	span := StartRepositorySpan(ctx, "plan", "get_by_name", map[string]interface{}{"name": name})
	defer FinishSpan(span)

	p, err := scanPlan(r.client.Querier(ctx).QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE name = $1`, name))
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "plan", map[string]any{"name": name})
	}

	SetSpanSuccess(span)
	return p, nil
}

func (r *planRepository) List(ctx context.Context) ([]*domainPlan.Plan, error) {
	span := StartRepositorySpan(ctx, "plan", "list", nil)
	defer FinishSpan(span)

	rows, err := r.client.Querier(ctx).QueryContext(ctx, `SELECT `+planColumns+` FROM plans ORDER BY tier, name`)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "plan", nil)
	}
	defer rows.Close()

	var out []*domainPlan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			SetSpanError(span, err)
			return nil, wrapErr(err, "plan", nil)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "plan", nil)
	}

	SetSpanSuccess(span)
	return out, nil
}

func (r *planRepository) Update(ctx context.Context, p *domainPlan.Plan) error {
	span := StartRepositorySpan(ctx, "plan", "update", map[string]interface{}{"plan_id": p.ID})
	defer FinishSpan(span)

	features, err := marshalJSON(p.Features)
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()
	res, err := r.client.Querier(ctx).ExecContext(ctx, `UPDATE plans SET
			display_name = $2, tier = $3, monthly_price = $4, currency = $5, max_employees = $6,
			max_storage_bytes = $7, max_api_calls_per_day = $8, features = $9, trial_days = $10,
			external_price_id = $11, active = $12, updated_at = $13
		WHERE id = $1`,
		p.ID, p.DisplayName, p.Tier, p.MonthlyPrice, p.Currency, p.MaxEmployees,
		p.MaxStorageBytes, p.MaxAPICallsPerDay, features, p.TrialDays,
		p.ExternalPriceID, p.Active, p.UpdatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "plan", map[string]any{"plan_id": p.ID})
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("plan not found").
			WithHint("Plan not found").
			WithReportableDetails(map[string]any{"plan_id": p.ID}).
			Mark(ierr.ErrNotFound)
	}

	SetSpanSuccess(span)
	return nil
}

func scanPlan(row rowScanner) (*domainPlan.Plan, error) {
	var (
		p        domainPlan.Plan
		features []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.DisplayName, &p.Tier, &p.MonthlyPrice, &p.Currency, &p.MaxEmployees, &p.MaxStorageBytes,
		&p.MaxAPICallsPerDay, &features, &p.TrialDays, &p.ExternalPriceID, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(features, &p.Features); err != nil {
		return nil, err
	}
	return &p, nil
}
