package service

import (
	"testing"
	"time"

	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	"github.com/flexprice/tenantcore/internal/domain/subscription"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type TenantServiceSuite struct {
	testutil.BaseServiceTestSuite
	service TenantService
	params  ServiceParams
}

func TestTenantService(t *testing.T) {
	suite.Run(t, new(TenantServiceSuite))
}

func (s *TenantServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewTenantService(s.params)
	seedPlans(s.GetContext(), &s.BaseServiceTestSuite)
}

func (s *TenantServiceSuite) signupRequest(key string) dto.SignupRequest {
	return dto.SignupRequest{
		Name:           "Acme Corp",
		Domain:         lo.ToPtr("Acme.test"),
		AdminEmail:     "Founder@Acme.test",
		AdminName:      "Fran Founder",
		Plan:           "growth",
		Trial:          true,
		IdempotencyKey: key,
	}
}

func (s *TenantServiceSuite) TestSignup() {
	ctx := s.GetContext()

	resp, err := s.service.Signup(ctx, s.signupRequest("tok-1"))
	s.Require().NoError(err)
	s.Equal(types.TenantStatusProvisioning, resp.Status)
	s.False(resp.Replayed)

	t, err := s.GetStores().TenantRepo.Get(ctx, resp.TenantID)
	s.Require().NoError(err)
	s.Equal("founder@acme.test", t.AdminEmail)
	s.Equal("acme.test", lo.FromPtr(t.Domain))
	s.Equal("growth", t.RequestedPlan)
	s.True(t.TrialRequested)
	s.Equal(types.BillingProviderInternal, t.BillingProvider)

	events, err := s.GetStores().LifecycleEventRepo.ListByTenant(ctx, t.ID, types.NewNoLimitQueryFilter())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(types.LifecycleEventProvisioningStarted, events[0].EventType)
}

func (s *TenantServiceSuite) TestSignupIsIdempotent() {
	ctx := s.GetContext()

	first, err := s.service.Signup(ctx, s.signupRequest("tok-1"))
	s.Require().NoError(err)

	second, err := s.service.Signup(ctx, s.signupRequest("tok-1"))
	s.Require().NoError(err)
	s.Equal(first.TenantID, second.TenantID)
	s.True(second.Replayed)

	count, err := s.GetStores().TenantRepo.Count(ctx, types.NewTenantFilter())
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *TenantServiceSuite) TestSignupValidation() {
	ctx := s.GetContext()

	s.Run("duplicate domain", func() {
		_, err := s.service.Signup(ctx, s.signupRequest("tok-a"))
		s.Require().NoError(err)

		_, err = s.service.Signup(ctx, s.signupRequest("tok-b"))
		s.Require().Error(err)
		s.True(ierr.IsAlreadyExists(err))
	})

	s.Run("unknown plan", func() {
		req := s.signupRequest("tok-c")
		req.Domain = nil
		req.Plan = "enterprise"

		_, err := s.service.Signup(ctx, req)
		s.Require().Error(err)
		s.True(ierr.IsValidation(err))
	})

	s.Run("missing idempotency key", func() {
		req := s.signupRequest("")
		req.Domain = nil

		_, err := s.service.Signup(ctx, req)
		s.Require().Error(err)
		s.True(ierr.IsValidation(err))
	})

	s.Run("unsupported billing provider", func() {
		req := s.signupRequest("tok-d")
		req.Domain = nil
		req.BillingProvider = "chargebee"

		_, err := s.service.Signup(ctx, req)
		s.Require().Error(err)
		s.True(ierr.IsValidation(err))
	})
}

func (s *TenantServiceSuite) TestGetStatus() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusProvisioning, "starter")

	run, err := s.GetStores().ProvisioningRepo.GetOrCreate(ctx, t.ID)
	s.Require().NoError(err)
	run.MarkCompleted(types.ProvisioningStepSubscription)
	s.Require().NoError(s.GetStores().ProvisioningRepo.Update(ctx, run))

	resp, err := s.service.GetStatus(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(types.TenantStatusProvisioning, resp.Status)
	s.Equal([]types.ProvisioningStep{types.ProvisioningStepSubscription}, resp.CompletedSteps)
}

func (s *TenantServiceSuite) TestChangePlan() {
	ctx := s.GetContext()
	actor := lifecycle.Actor{Type: types.ActorTypeOperator, ID: "op_1"}

	newSub := func(tenantID string) {
		now := time.Now().UTC()
		s.Require().NoError(s.GetStores().SubscriptionRepo.Create(ctx, &subscription.Subscription{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
			TenantID:      tenantID,
			PlanName:      "starter",
			Provider:      types.BillingProviderInternal,
			Status:        types.SubscriptionStatusActive,
			BillingPeriod: types.BillingPeriodMonthly,
			CreatedAt:     now,
			UpdatedAt:     now,
		}))
	}

	s.Run("upgrade an active tenant", func() {
		t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")
		newSub(t.ID)

		resp, err := s.service.ChangePlan(ctx, t.ID, dto.ChangePlanRequest{Plan: "growth", Reason: "more seats"}, actor)
		s.Require().NoError(err)
		s.Equal("growth", resp.PlanName)
		s.Equal(100, resp.MaxEmployees)
		s.Equal(types.TenantStatusActive, resp.Status)

		sub, err := s.GetStores().SubscriptionRepo.GetByTenant(ctx, t.ID)
		s.Require().NoError(err)
		s.Equal("growth", sub.PlanName)

		events, err := s.GetStores().LifecycleEventRepo.ListByTenant(ctx, t.ID, types.NewNoLimitQueryFilter())
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(types.LifecycleEventPlanChanged, events[0].EventType)
		s.Equal("upgrade", events[0].Metadata["direction"])
	})

	s.Run("same plan", func() {
		t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")
		newSub(t.ID)

		_, err := s.service.ChangePlan(ctx, t.ID, dto.ChangePlanRequest{Plan: "starter"}, actor)
		s.Require().Error(err)
		s.True(ierr.IsValidation(err))
	})

	s.Run("cancelled tenant", func() {
		t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusCancelled, "starter")
		newSub(t.ID)

		_, err := s.service.ChangePlan(ctx, t.ID, dto.ChangePlanRequest{Plan: "growth"}, actor)
		s.Require().Error(err)
		s.True(ierr.IsInvalidOperation(err))
	})
}
