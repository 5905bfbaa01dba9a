package service

import (
	"testing"
	"time"

	"github.com/flexprice/tenantcore/internal/domain/adminaudit"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type ExportServiceSuite struct {
	testutil.BaseServiceTestSuite
	service ExportService
}

func TestExportService(t *testing.T) {
	suite.Run(t, new(ExportServiceSuite))
}

func (s *ExportServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewExportService(newTestServiceParams(&s.BaseServiceTestSuite))
	seedPlans(s.GetContext(), &s.BaseServiceTestSuite)
}

func (s *ExportServiceSuite) TestTenantActorNeedsFeature() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")

	_, err := s.service.ExportTenant(ctx, t.ID, lifecycle.Actor{Type: types.ActorTypeTenant, ID: "usr_1"})
	s.Require().Error(err)
	s.True(ierr.IsFeatureUnavailable(err))
	s.Equal("growth", ierr.GetReportableDetails(err)["required_plan"])

	count, err := s.GetStores().LifecycleEventRepo.CountByTenant(ctx, t.ID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ExportServiceSuite) TestTenantActorOnGrowth() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "growth")
	seedUser(ctx, &s.BaseServiceTestSuite, t.ID, "a1@acme.test")
	other := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "growth")
	seedUser(ctx, &s.BaseServiceTestSuite, other.ID, "b1@beta.test")

	resp, err := s.service.ExportTenant(ctx, t.ID, lifecycle.Actor{Type: types.ActorTypeTenant, ID: "usr_1"})
	s.Require().NoError(err)
	s.Nil(resp.Location)
	s.Require().NotNil(resp.Data)
	s.Equal(t.ID, resp.Data.Tenant.ID)
	s.Require().Len(resp.Data.Users, 1)
	s.Equal("a1@acme.test", resp.Data.Users[0].Email)
	s.Nil(resp.Data.AdminActions)

	s.Equal([]types.LifecycleEventType{types.LifecycleEventDataExported}, s.GetPublisher().LifecycleEventTypes())

	m, err := s.GetStores().UsageRepo.Get(ctx, t.ID, types.UsagePeriod(time.Now()))
	s.Require().NoError(err)
	s.EqualValues(1, m.FeatureUsage[types.FeatureDataExport])
}

func (s *ExportServiceSuite) TestOperatorExportIncludesAdminActions() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusSuspended, "starter")
	s.Require().NoError(s.GetStores().AdminAuditRepo.Create(ctx, &adminaudit.AdminAudit{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ADMIN_AUDIT),
		OperatorID:     "op_1",
		ActionType:     "suspend",
		Method:         "POST",
		Endpoint:       "/v1/admin/tenants/" + t.ID + "/suspend",
		TargetTenantID: lo.ToPtr(t.ID),
		StatusCode:     200,
		Success:        true,
		CreatedAt:      time.Now().UTC(),
	}))

	// operators bypass the plan gate
	resp, err := s.service.ExportTenant(ctx, t.ID, lifecycle.Actor{Type: types.ActorTypeOperator, ID: "op_1"})
	s.Require().NoError(err)
	s.Require().Len(resp.Data.AdminActions, 1)
	s.Equal("suspend", resp.Data.AdminActions[0].ActionType)
}

func (s *ExportServiceSuite) TestUnexportableStatuses() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusProvisioning, "growth")

	_, err := s.service.ExportTenant(ctx, t.ID, lifecycle.Actor{Type: types.ActorTypeOperator, ID: "op_1"})
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}
