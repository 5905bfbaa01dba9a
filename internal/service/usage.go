package service

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/domain/plan"
	"github.com/flexprice/tenantcore/internal/domain/usage"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
)

// UsageService reads and maintains the per-tenant usage counters
type UsageService interface {
	GetUsage(ctx context.Context, tenantID string) (*dto.UsageResponse, error)
	// Current returns this period's counters, zeroed when nothing was
	// recorded yet
	Current(ctx context.Context, tenantID string) (*usage.Metrics, error)
	Increment(ctx context.Context, tenantID string, counter types.UsageCounter, delta int64) error
	// MirrorAPIRequests copies the rate limiter's daily count into the
	// usage row and adds one to the running total
	MirrorAPIRequests(ctx context.Context, tenantID string, today int64, at time.Time) error
	RecordFeatureUse(ctx context.Context, tenantID, feature string) error
}

type usageService struct {
	ServiceParams
	plans PlanService
}

func NewUsageService(params ServiceParams) UsageService {
	return &usageService{
		ServiceParams: params,
		plans:         NewPlanService(params),
	}
}

func (s *usageService) GetUsage(ctx context.Context, tenantID string) (*dto.UsageResponse, error) {
	t, err := s.TenantRepo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	m, err := s.Current(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	resp := &dto.UsageResponse{Metrics: m}
	if t.PlanName == "" {
		return resp, nil
	}
	p, err := s.plans.GetPlanByName(ctx, t.PlanName)
	if err != nil {
		// a retired plan still leaves the counters readable
		s.Logger.WithContext(ctx).Warnw("plan of tenant not found", "tenant_id", tenantID, "plan", t.PlanName, "error", err)
		return resp, nil
	}
	resp.Limits = limitsOf(p)
	return resp, nil
}

func limitsOf(p *plan.Plan) dto.UsageLimits {
	return dto.UsageLimits{
		MaxEmployees:      p.MaxEmployees,
		MaxStorageBytes:   p.MaxStorageBytes,
		MaxAPICallsPerDay: p.MaxAPICallsPerDay,
	}
}

func (s *usageService) Current(ctx context.Context, tenantID string) (*usage.Metrics, error) {
	now := time.Now()
	period := types.UsagePeriod(now)
	m, err := s.UsageRepo.Get(ctx, tenantID, period)
	if err == nil {
		return m, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}
	return &usage.Metrics{
		TenantID:     tenantID,
		Period:       period,
		FeatureUsage: map[string]int64{},
	}, nil
}

func (s *usageService) Increment(ctx context.Context, tenantID string, counter types.UsageCounter, delta int64) error {
	if delta == 0 {
		return nil
	}
	return s.UsageRepo.Increment(ctx, tenantID, types.UsagePeriod(time.Now()), counter, delta)
}

func (s *usageService) MirrorAPIRequests(ctx context.Context, tenantID string, today int64, at time.Time) error {
	return s.UsageRepo.RecordAPIRequests(ctx, tenantID, types.UsagePeriod(at), types.UsageDay(at), today, 1)
}

func (s *usageService) RecordFeatureUse(ctx context.Context, tenantID, feature string) error {
	return s.UsageRepo.IncrementFeature(ctx, tenantID, types.UsagePeriod(time.Now()), feature, 1)
}
