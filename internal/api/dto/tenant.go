package dto

import (
	"context"
	"strings"
	"time"

	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/flexprice/tenantcore/internal/validator"
	"github.com/samber/lo"
)

// SignupRequest creates a tenant in Provisioning. The idempotency key may
// also arrive in the Idempotency-Key header; the handler copies it here.
type SignupRequest struct {
	Name              string                `json:"name" validate:"required,min=2,max=255"`
	Domain            *string               `json:"domain,omitempty" validate:"omitempty,fqdn"`
	AdminEmail        string                `json:"admin_email" validate:"required,email"`
	AdminName         string                `json:"admin_name" validate:"required,max=255"`
	Plan              string                `json:"plan,omitempty"`
	Trial             bool                  `json:"trial"`
	IdempotencyKey    string                `json:"idempotency_key" validate:"required,max=255"`
	BillingProvider   types.BillingProvider `json:"billing_provider,omitempty"`
	BillingCustomerID *string               `json:"billing_customer_id,omitempty"`
}

func (r *SignupRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	switch r.BillingProvider {
	case "", types.BillingProviderInternal, types.BillingProviderStripe:
	default:
		return ierr.NewError("unsupported billing provider").
			WithHintf("Billing provider %q is not supported", r.BillingProvider).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *SignupRequest) ToTenant(ctx context.Context) *domainTenant.Tenant {
	now := time.Now().UTC()
	actor := lo.CoalesceOrEmpty(types.GetUserID(ctx), types.DefaultUserID)

	var domain *string
	if r.Domain != nil && *r.Domain != "" {
		domain = lo.ToPtr(strings.ToLower(*r.Domain))
	}

	return &domainTenant.Tenant{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TENANT),
		Name:              r.Name,
		Domain:            domain,
		Status:            types.TenantStatusProvisioning,
		AdminEmail:        strings.ToLower(r.AdminEmail),
		AdminName:         r.AdminName,
		RequestedPlan:     r.Plan,
		TrialRequested:    r.Trial,
		BillingProvider:   lo.CoalesceOrEmpty(r.BillingProvider, types.BillingProviderInternal),
		BillingCustomerID: r.BillingCustomerID,
		IdempotencyKey:    lo.ToPtr(r.IdempotencyKey),
		CreatedAt:         now,
		UpdatedAt:         now,
		CreatedBy:         actor,
		UpdatedBy:         actor,
	}
}

type SignupResponse struct {
	TenantID string             `json:"tenant_id"`
	Status   types.TenantStatus `json:"status"`
	// Replayed is true when the idempotency key matched an earlier signup
	Replayed bool `json:"replayed"`
}

type TenantResponse struct {
	*domainTenant.Tenant
}

type ListTenantsResponse = types.ListResponse[*TenantResponse]

type TenantStatusResponse struct {
	TenantID       string                   `json:"tenant_id"`
	Status         types.TenantStatus       `json:"status"`
	ProvisionedAt  *time.Time               `json:"provisioned_at,omitempty"`
	FailureReason  string                   `json:"failure_reason,omitempty"`
	CompletedSteps []types.ProvisioningStep `json:"completed_steps,omitempty"`
	FailedStep     types.ProvisioningStep   `json:"failed_step,omitempty"`
}

type ActivateTenantRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type SuspendTenantRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
	// GracePeriodDays overrides the configured grace period
	GracePeriodDays *int `json:"grace_period_days,omitempty" validate:"omitempty,min=0,max=365"`
}

func (r *SuspendTenantRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *SuspendTenantRequest) GracePeriod() *time.Duration {
	if r.GracePeriodDays == nil {
		return nil
	}
	return lo.ToPtr(time.Duration(*r.GracePeriodDays) * 24 * time.Hour)
}

type ResumeTenantRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type CancelTenantRequest struct {
	Reason           string `json:"reason" validate:"required,max=1000"`
	ScheduleDeletion bool   `json:"schedule_deletion"`
	// RetentionDays overrides the configured retention window
	RetentionDays *int `json:"retention_days,omitempty" validate:"omitempty,min=0,max=3650"`
}

func (r *CancelTenantRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *CancelTenantRequest) Retention() *time.Duration {
	if r.RetentionDays == nil {
		return nil
	}
	return lo.ToPtr(time.Duration(*r.RetentionDays) * 24 * time.Hour)
}

type ChangePlanRequest struct {
	Plan          string              `json:"plan" validate:"required"`
	BillingPeriod types.BillingPeriod `json:"billing_period,omitempty" validate:"omitempty,oneof=monthly annual"`
	Reason        string              `json:"reason" validate:"max=1000"`
}

func (r *ChangePlanRequest) Validate() error {
	return validator.ValidateRequest(r)
}
