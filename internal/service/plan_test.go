package service

import (
	"testing"

	"github.com/flexprice/tenantcore/internal/api/dto"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PlanServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PlanService
	params  ServiceParams
}

func TestPlanService(t *testing.T) {
	suite.Run(t, new(PlanServiceSuite))
}

func (s *PlanServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewPlanService(s.params)
}

func (s *PlanServiceSuite) TestCreatePlan() {
	s.Run("Valid Plan", func() {
		req := dto.CreatePlanRequest{
			Name:         "starter",
			DisplayName:  "Starter",
			Tier:         1,
			MonthlyPrice: decimal.NewFromInt(29),
			MaxEmployees: 10,
			Features:     []string{types.FeatureLeave, types.FeatureLeave},
		}

		resp, err := s.service.CreatePlan(s.GetContext(), req)
		s.NoError(err)
		s.NotNil(resp)
		s.Equal(req.Name, resp.Plan.Name)
		s.Equal("usd", resp.Plan.Currency)
		s.Equal([]string{types.FeatureLeave}, resp.Plan.Features)
		s.True(resp.Plan.Active)
	})

	s.Run("Negative price", func() {
		req := dto.CreatePlanRequest{
			Name:         "broken",
			DisplayName:  "Broken",
			Tier:         1,
			MonthlyPrice: decimal.NewFromInt(-1),
		}

		_, err := s.service.CreatePlan(s.GetContext(), req)
		s.Error(err)
		s.True(ierr.IsValidation(err))
	})

	s.Run("Missing tier", func() {
		_, err := s.service.CreatePlan(s.GetContext(), dto.CreatePlanRequest{Name: "x", DisplayName: "X"})
		s.Error(err)
		s.True(ierr.IsValidation(err))
	})
}

func (s *PlanServiceSuite) TestGetPlanByName() {
	ctx := s.GetContext()
	starter, _ := seedPlans(ctx, &s.BaseServiceTestSuite)

	p, err := s.service.GetPlanByName(ctx, "starter")
	s.Require().NoError(err)
	s.Equal(starter.ID, p.ID)

	// served from cache afterwards
	_, ok := s.GetCache().Get(ctx, "plan:name:starter")
	s.True(ok)

	_, err = s.service.GetPlanByName(ctx, "enterprise")
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PlanServiceSuite) TestUpdatePlanInvalidatesCache() {
	ctx := s.GetContext()
	starter, _ := seedPlans(ctx, &s.BaseServiceTestSuite)

	_, err := s.service.GetPlanByName(ctx, "starter")
	s.Require().NoError(err)

	_, err = s.service.UpdatePlan(ctx, starter.ID, dto.UpdatePlanRequest{MaxEmployees: lo.ToPtr(25)})
	s.Require().NoError(err)

	p, err := s.service.GetPlanByName(ctx, "starter")
	s.Require().NoError(err)
	s.Equal(25, p.MaxEmployees)
}

func (s *PlanServiceSuite) TestDefaultPlan() {
	ctx := s.GetContext()

	_, err := s.service.DefaultPlan(ctx)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))

	starter, _ := seedPlans(ctx, &s.BaseServiceTestSuite)
	p, err := s.service.DefaultPlan(ctx)
	s.Require().NoError(err)
	s.Equal(starter.ID, p.ID)
}

func (s *PlanServiceSuite) TestCheapestWithFeature() {
	ctx := s.GetContext()
	_, growth := seedPlans(ctx, &s.BaseServiceTestSuite)

	p, ok := s.service.CheapestWithFeature(ctx, types.FeatureDataExport)
	s.Require().True(ok)
	s.Equal(growth.ID, p.ID)

	_, ok = s.service.CheapestWithFeature(ctx, types.FeatureCustomRoles)
	s.False(ok)
}
