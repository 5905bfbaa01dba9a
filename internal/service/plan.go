package service

import (
	"context"

	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/cache"
	"github.com/flexprice/tenantcore/internal/domain/plan"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

type PlanService interface {
	CreatePlan(ctx context.Context, req dto.CreatePlanRequest) (*dto.PlanResponse, error)
	GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	GetPlanByName(ctx context.Context, name string) (*plan.Plan, error)
	ListPlans(ctx context.Context) (*dto.ListPlansResponse, error)
	UpdatePlan(ctx context.Context, id string, req dto.UpdatePlanRequest) (*dto.PlanResponse, error)
	// DefaultPlan is the lowest tier active plan, used when signup names none
	DefaultPlan(ctx context.Context) (*plan.Plan, error)
	// CheapestWithFeature suggests the plan a tenant would need for feature
	CheapestWithFeature(ctx context.Context, feature string) (*plan.Plan, bool)
}

type planService struct {
	ServiceParams
}

func NewPlanService(
	params ServiceParams,
) PlanService {
	return &planService{
		ServiceParams: params,
	}
}

func (s *planService) CreatePlan(ctx context.Context, req dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	// Validate request
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.ToPlan()

	if err := s.PlanRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("plan created", "plan_id", p.ID, "name", p.Name, "tier", p.Tier)
	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	if id == "" {
		return nil, ierr.NewError("plan ID is required").
			WithHint("Please provide a valid plan ID").
			Mark(ierr.ErrValidation)
	}

	if cached, ok := s.Cache.Get(ctx, cache.PrefixPlan+id); ok {
		if p, ok := cache.UnmarshalCacheValue[plan.Plan](cached); ok {
			return &dto.PlanResponse{Plan: p}, nil
		}
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, cache.PrefixPlan+id, p, cache.ExpiryPlan)
	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) GetPlanByName(ctx context.Context, name string) (*plan.Plan, error) {
	if name == "" {
		return nil, ierr.NewError("plan name is required").
			WithHint("Please provide a plan name").
			Mark(ierr.ErrValidation)
	}

	key := cache.PrefixPlanByName + name
	if cached, ok := s.Cache.Get(ctx, key); ok {
		if p, ok := cache.UnmarshalCacheValue[plan.Plan](cached); ok {
			return p, nil
		}
	}

	p, err := s.PlanRepo.GetByName(ctx, name)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("Plan %q does not exist", name).
				WithReportableDetails(map[string]any{"plan": name}).
				Mark(ierr.ErrValidation)
		}
		return nil, err
	}
	s.Cache.Set(ctx, key, p, cache.ExpiryPlan)
	return p, nil
}

func (s *planService) ListPlans(ctx context.Context) (*dto.ListPlansResponse, error) {
	plans, err := s.PlanRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	items := lo.Map(plans, func(p *plan.Plan, _ int) *dto.PlanResponse {
		return &dto.PlanResponse{Plan: p}
	})
	return types.NewListResponse(items, len(items), len(items), 0), nil
}

func (s *planService) UpdatePlan(ctx context.Context, id string, req dto.UpdatePlanRequest) (*dto.PlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.PlanRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Cache.Delete(ctx, cache.PrefixPlan+p.ID)
	s.Cache.Delete(ctx, cache.PrefixPlanByName+p.Name)

	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) DefaultPlan(ctx context.Context) (*plan.Plan, error) {
	plans, err := s.PlanRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	p, ok := plan.LowestTier(plans)
	if !ok {
		return nil, ierr.NewError("no active plan configured").
			WithHint("No subscription plan is available").
			Mark(ierr.ErrInvalidOperation)
	}
	return p, nil
}

func (s *planService) CheapestWithFeature(ctx context.Context, feature string) (*plan.Plan, bool) {
	plans, err := s.PlanRepo.List(ctx)
	if err != nil {
		s.Logger.WithContext(ctx).Warnw("failed to list plans for feature suggestion", "feature", feature, "error", err)
		return nil, false
	}
	return plan.CheapestWithFeature(plans, feature)
}
