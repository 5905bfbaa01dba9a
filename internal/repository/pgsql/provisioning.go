package pgsql

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/domain/provisioning"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
)

const provisioningRunColumns = `id, tenant_id, completed_steps, failed_step, last_error, attempts, started_at, completed_at, updated_at`

type provisioningRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewProvisioningRepository(client postgres.IClient, logger *logger.Logger) provisioning.Repository {
	return &provisioningRepository{
		client: client,
		logger: logger,
	}
}

// GetOrCreate relies on the unique tenant_id; two concurrent callers end up
// reading the same row
func (r *provisioningRepository) GetOrCreate(ctx context.Context, tenantID string) (*provisioning.Run, error) {
	span := StartRepositorySpan(ctx, "provisioning_run", "get_or_create", map[string]interface{}{"tenant_id": tenantID})
	defer FinishSpan(span)

	now := time.Now().UTC()
	_, err := r.client.Querier(ctx).ExecContext(ctx, `INSERT INTO provisioning_runs (id, tenant_id, started_at, updated_at)
		VALUES ($1, $2, $3, $3) ON CONFLICT (tenant_id) DO NOTHING`,
		types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROVISIONING_RUN), tenantID, now)
	if err != nil {
		SetSpanError(span, err)
		return nil, wrapErr(err, "provisioning run", map[string]any{"tenant_id": tenantID})
	}

	SetSpanSuccess(span)
	return r.Get(ctx, tenantID)
}

func (r *provisioningRepository) Get(ctx context.Context, tenantID string) (*provisioning.Run, error) {
	var (
		run   provisioning.Run
		steps []byte
	)
	err := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+provisioningRunColumns+` FROM provisioning_runs WHERE tenant_id = $1`, tenantID).
		Scan(&run.ID, &run.TenantID, &steps, &run.FailedStep, &run.LastError, &run.Attempts,
			&run.StartedAt, &run.CompletedAt, &run.UpdatedAt)
	if err != nil {
		return nil, wrapErr(err, "provisioning run", map[string]any{"tenant_id": tenantID})
	}
	if err := unmarshalJSON(steps, &run.CompletedSteps); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *provisioningRepository) Update(ctx context.Context, run *provisioning.Run) error {
	span := StartRepositorySpan(ctx, "provisioning_run", "update", map[string]interface{}{
		"tenant_id": run.TenantID,
		"completed": len(run.CompletedSteps),
	})
	defer FinishSpan(span)

	steps, err := marshalJSON(run.CompletedSteps)
	if err != nil {
		return err
	}

	run.UpdatedAt = time.Now().UTC()
	res, err := r.client.Querier(ctx).ExecContext(ctx, `UPDATE provisioning_runs SET
			completed_steps = $2, failed_step = $3, last_error = $4, attempts = $5, completed_at = $6, updated_at = $7
		WHERE tenant_id = $1`,
		run.TenantID, steps, run.FailedStep, run.LastError, run.Attempts, run.CompletedAt, run.UpdatedAt)
	if err != nil {
		SetSpanError(span, err)
		return wrapErr(err, "provisioning run", map[string]any{"tenant_id": run.TenantID})
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("provisioning run not found").
			WithReportableDetails(map[string]any{"tenant_id": run.TenantID}).
			Mark(ierr.ErrNotFound)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *provisioningRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	if _, err := r.client.Querier(ctx).ExecContext(ctx, `DELETE FROM provisioning_runs WHERE tenant_id = $1`, tenantID); err != nil {
		return wrapErr(err, "provisioning run", map[string]any{"tenant_id": tenantID})
	}
	return nil
}
