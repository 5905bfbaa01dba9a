package service

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

type TenantService interface {
	// Signup creates a tenant in Provisioning. Repeating a signup with the
	// same idempotency key returns the first tenant.
	Signup(ctx context.Context, req dto.SignupRequest) (*dto.SignupResponse, error)
	GetTenant(ctx context.Context, id string) (*dto.TenantResponse, error)
	ListTenants(ctx context.Context, filter *types.TenantFilter) (*dto.ListTenantsResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.TenantStatusResponse, error)
	ChangePlan(ctx context.Context, id string, req dto.ChangePlanRequest, actor lifecycle.Actor) (*dto.TenantResponse, error)
}

type tenantService struct {
	ServiceParams
	lifecycle LifecycleService
	plans     PlanService
}

func NewTenantService(params ServiceParams) TenantService {
	return &tenantService{
		ServiceParams: params,
		lifecycle:     NewLifecycleService(params),
		plans:         NewPlanService(params),
	}
}

func (s *tenantService) Signup(ctx context.Context, req dto.SignupRequest) (*dto.SignupResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Plan != "" {
		p, err := s.plans.GetPlanByName(ctx, req.Plan)
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, ierr.NewError("plan is not available").
				WithHintf("Plan %q is not available for signup", req.Plan).
				Mark(ierr.ErrValidation)
		}
	}

	var resp *dto.SignupResponse
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		// signups sharing a token are serialized so only one row is created
		lockKey := types.GenerateLockKey(types.LockScopeSignup, map[string]interface{}{
			"idempotency_key": req.IdempotencyKey,
		})
		if err := s.DB.LockKey(ctx, types.LockRequest{Key: lockKey}); err != nil {
			return err
		}

		existing, err := s.TenantRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			s.Logger.WithContext(ctx).Infow("signup replayed",
				"tenant_id", existing.ID,
				"idempotency_key", req.IdempotencyKey,
			)
			resp = &dto.SignupResponse{TenantID: existing.ID, Status: existing.Status, Replayed: true}
			return nil
		}
		if !ierr.IsNotFound(err) {
			return err
		}

		t := req.ToTenant(ctx)

		if t.Domain != nil {
			filter := types.NewTenantFilter()
			filter.Domain = *t.Domain
			count, err := s.TenantRepo.Count(ctx, filter)
			if err != nil {
				return err
			}
			if count > 0 {
				return ierr.NewError("domain already registered").
					WithHintf("Domain %s is already registered", *t.Domain).
					Mark(ierr.ErrAlreadyExists)
			}
		}

		if err := s.TenantRepo.Create(ctx, t); err != nil {
			return err
		}

		if _, err := s.lifecycle.RecordEvent(ctx, t.ID, types.LifecycleEventProvisioningStarted,
			"signup", map[string]any{
				"plan":  t.RequestedPlan,
				"trial": t.TrialRequested,
			}, ActorFromContext(ctx)); err != nil {
			return err
		}

		s.Logger.WithContext(ctx).Infow("tenant signed up",
			"tenant_id", t.ID,
			"name", t.Name,
			"plan", t.RequestedPlan,
		)
		resp = &dto.SignupResponse{TenantID: t.ID, Status: t.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *tenantService) GetTenant(ctx context.Context, id string) (*dto.TenantResponse, error) {
	if id == "" {
		return nil, ierr.NewError("tenant ID is required").
			WithHint("Please provide a valid tenant ID").
			Mark(ierr.ErrValidation)
	}

	t, err := s.TenantRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.TenantResponse{Tenant: t}, nil
}

func (s *tenantService) ListTenants(ctx context.Context, filter *types.TenantFilter) (*dto.ListTenantsResponse, error) {
	if filter == nil {
		filter = types.NewTenantFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	tenants, err := s.TenantRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.TenantRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(tenants, func(t *domainTenant.Tenant, _ int) *dto.TenantResponse {
		return &dto.TenantResponse{Tenant: t}
	})
	return types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset()), nil
}

func (s *tenantService) GetStatus(ctx context.Context, id string) (*dto.TenantStatusResponse, error) {
	t, err := s.TenantRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.TenantStatusResponse{
		TenantID:      t.ID,
		Status:        t.Status,
		ProvisionedAt: t.ProvisionedAt,
		FailureReason: t.FailureReason,
	}

	run, err := s.ProvisioningRepo.Get(ctx, t.ID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if run != nil {
		resp.CompletedSteps = run.CompletedSteps
		resp.FailedStep = run.FailedStep
	}
	return resp, nil
}

// ChangePlan moves an operational tenant to another plan. The status does
// not change; a plan_changed event records the move.
func (s *tenantService) ChangePlan(ctx context.Context, id string, req dto.ChangePlanRequest, actor lifecycle.Actor) (*dto.TenantResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	target, err := s.plans.GetPlanByName(ctx, req.Plan)
	if err != nil {
		return nil, err
	}
	if !target.Active {
		return nil, ierr.NewError("plan is not available").
			WithHintf("Plan %q is no longer offered", target.Name).
			Mark(ierr.ErrValidation)
	}

	var result *domainTenant.Tenant
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.TenantRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != types.TenantStatusActive && t.Status != types.TenantStatusSuspended {
			return ierr.NewError("plan change not allowed").
				WithHintf("The plan of a %s tenant cannot be changed", t.Status).
				WithReportableDetails(map[string]any{"status": t.Status}).
				Mark(ierr.ErrInvalidOperation)
		}

		sub, err := s.SubscriptionRepo.GetByTenant(ctx, t.ID)
		if err != nil {
			return err
		}

		period := lo.CoalesceOrEmpty(req.BillingPeriod, sub.BillingPeriod)
		if sub.PlanName == target.Name && sub.BillingPeriod == period {
			return ierr.NewError("tenant already on plan").
				WithHintf("Tenant is already on the %s plan", target.Name).
				Mark(ierr.ErrValidation)
		}

		direction := "change"
		if previous, err := s.plans.GetPlanByName(ctx, sub.PlanName); err == nil {
			switch {
			case target.Tier > previous.Tier:
				direction = "upgrade"
			case target.Tier < previous.Tier:
				direction = "downgrade"
			}
		}

		metadata := map[string]any{
			"from_plan":      sub.PlanName,
			"to_plan":        target.Name,
			"billing_period": period,
			"direction":      direction,
		}

		now := time.Now().UTC()
		sub.PlanID = target.ID
		sub.PlanName = target.Name
		sub.BillingPeriod = period
		sub.UpdatedAt = now
		if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
			return err
		}

		t.PlanName = target.Name
		t.MaxEmployees = target.MaxEmployees
		t.UpdatedAt = now
		t.UpdatedBy = lo.CoalesceOrEmpty(actor.ID, types.DefaultUserID)
		if err := s.TenantRepo.Update(ctx, t); err != nil {
			return err
		}

		if _, err := s.lifecycle.RecordEvent(ctx, t.ID, types.LifecycleEventPlanChanged, req.Reason, metadata, actor); err != nil {
			return err
		}

		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto.TenantResponse{Tenant: result}, nil
}
