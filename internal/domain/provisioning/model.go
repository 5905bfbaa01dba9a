package provisioning

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

// Run records provisioning progress for a tenant across attempts
type Run struct {
	ID             string                   `json:"id"`
	TenantID       string                   `json:"tenant_id"`
	CompletedSteps []types.ProvisioningStep `json:"completed_steps"`
	FailedStep     types.ProvisioningStep   `json:"failed_step,omitempty"`
	LastError      string                   `json:"last_error,omitempty"`
	Attempts       int                      `json:"attempts"`
	StartedAt      time.Time                `json:"started_at"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

func (r *Run) IsCompleted(step types.ProvisioningStep) bool {
	return lo.Contains(r.CompletedSteps, step)
}

func (r *Run) MarkCompleted(step types.ProvisioningStep) {
	if !r.IsCompleted(step) {
		r.CompletedSteps = append(r.CompletedSteps, step)
	}
	if r.FailedStep == step {
		r.FailedStep = ""
		r.LastError = ""
	}
}

// NextStep returns the first step not yet completed
func (r *Run) NextStep() (types.ProvisioningStep, bool) {
	for _, step := range types.ProvisioningSteps {
		if !r.IsCompleted(step) {
			return step, true
		}
	}
	return "", false
}

type Repository interface {
	// GetOrCreate returns the tenant's run, inserting an empty one if absent
	GetOrCreate(ctx context.Context, tenantID string) (*Run, error)
	Get(ctx context.Context, tenantID string) (*Run, error)
	Update(ctx context.Context, r *Run) error
	DeleteByTenant(ctx context.Context, tenantID string) error
}
