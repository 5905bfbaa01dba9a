package service

import (
	"testing"
	"time"

	"github.com/flexprice/tenantcore/internal/api/dto"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type DirectoryServiceSuite struct {
	testutil.BaseServiceTestSuite
	service DirectoryService
	tenantA string
	tenantB string
}

func TestDirectoryService(t *testing.T) {
	suite.Run(t, new(DirectoryServiceSuite))
}

func (s *DirectoryServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewDirectoryService(newTestServiceParams(&s.BaseServiceTestSuite))
	s.tenantA = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TENANT)
	s.tenantB = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TENANT)
}

func (s *DirectoryServiceSuite) admin(tenantID string) isolation.Scope {
	return isolation.TenantScope(tenantID, "usr_admin", types.CapabilityTenantAdmin)
}

func (s *DirectoryServiceSuite) operator() isolation.Scope {
	elevation, ok := isolation.DefaultAllowList().Elevate(types.CapabilityPlatformOperator, "op_1", isolation.AdminPrefixUsers)
	s.Require().True(ok)
	return isolation.TenantScope(types.PlatformTenantID, "op_1", types.CapabilityPlatformOperator).WithElevation(elevation)
}

func (s *DirectoryServiceSuite) TestListUsersIsTenantScoped() {
	ctx := s.GetContext()
	seedUser(ctx, &s.BaseServiceTestSuite, s.tenantA, "a1@acme.test")
	seedUser(ctx, &s.BaseServiceTestSuite, s.tenantA, "a2@acme.test")
	seedUser(ctx, &s.BaseServiceTestSuite, s.tenantB, "b1@beta.test")

	resp, err := s.service.ListUsers(ctx, s.admin(s.tenantA), nil)
	s.Require().NoError(err)
	s.Equal(2, resp.Pagination.Total)
	for _, u := range resp.Items {
		s.Equal(s.tenantA, u.TenantID)
	}

	// the platform sentinel without elevation sees nothing
	platform := isolation.TenantScope(types.PlatformTenantID, "op_1", types.CapabilityPlatformOperator)
	resp, err = s.service.ListUsers(ctx, platform, nil)
	s.Require().NoError(err)
	s.Zero(resp.Pagination.Total)

	resp, err = s.service.ListUsers(ctx, s.operator(), nil)
	s.Require().NoError(err)
	s.Equal(3, resp.Pagination.Total)
}

func (s *DirectoryServiceSuite) TestCrossTenantReadIsNotFound() {
	ctx := s.GetContext()
	other := seedUser(ctx, &s.BaseServiceTestSuite, s.tenantB, "b1@beta.test")

	_, err := s.service.GetUser(ctx, s.admin(s.tenantA), other.ID)
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))

	resp, err := s.service.GetUser(ctx, s.operator(), other.ID)
	s.Require().NoError(err)
	s.Equal(s.tenantB, resp.TenantID)
}

func (s *DirectoryServiceSuite) TestUpdateUser() {
	ctx := s.GetContext()
	u := seedUser(ctx, &s.BaseServiceTestSuite, s.tenantA, "a1@acme.test")

	s.Run("rename within the tenant", func() {
		resp, err := s.service.UpdateUser(ctx, s.admin(s.tenantA), u.ID, dto.UpdateUserRequest{
			Name:  lo.ToPtr("  Renamed  "),
			Roles: []string{types.RoleManager, types.RoleManager},
		})
		s.Require().NoError(err)
		s.Equal("Renamed", resp.Name)
		s.Equal([]string{types.RoleManager}, resp.Roles)
	})

	s.Run("cross-tenant update", func() {
		_, err := s.service.UpdateUser(ctx, s.admin(s.tenantB), u.ID, dto.UpdateUserRequest{Name: lo.ToPtr("x")})
		s.Require().Error(err)
		s.True(ierr.IsBoundaryViolation(err))
	})

	s.Run("tenant reassignment is refused even when elevated", func() {
		for _, scope := range []isolation.Scope{s.admin(s.tenantA), s.operator()} {
			_, err := s.service.UpdateUser(ctx, scope, u.ID, dto.UpdateUserRequest{TenantID: lo.ToPtr(s.tenantB)})
			s.Require().Error(err)
			s.True(ierr.IsTenantTamper(err))
		}

		stored, err := s.GetStores().UserStore.Get(ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(s.tenantA, stored.TenantID)
		s.Equal("Renamed", stored.Name)
	})
}

func (s *DirectoryServiceSuite) TestUsersAreDeletionProtected() {
	ctx := s.GetContext()
	u := seedUser(ctx, &s.BaseServiceTestSuite, s.tenantA, "a1@acme.test")

	for _, scope := range []isolation.Scope{s.admin(s.tenantA), s.operator()} {
		err := s.service.DeleteUser(ctx, scope, u.ID)
		s.Require().Error(err)
		s.True(ierr.IsInvalidOperation(err))
	}

	_, err := s.GetStores().UserStore.Get(ctx, u.ID)
	s.NoError(err)
}

func (s *DirectoryServiceSuite) TestCreateDepartment() {
	ctx := s.GetContext()
	scope := s.admin(s.tenantA)

	parent, err := s.service.CreateDepartment(ctx, scope, dto.CreateDepartmentRequest{Code: " OPS ", Name: "Operations"})
	s.Require().NoError(err)
	s.Equal("ops", parent.Code)
	s.Equal(s.tenantA, parent.TenantID)

	_, err = s.service.CreateDepartment(ctx, scope, dto.CreateDepartmentRequest{Code: "sre", Name: "SRE", ParentID: &parent.ID})
	s.Require().NoError(err)

	m, err := s.GetStores().UsageRepo.Get(ctx, s.tenantA, types.UsagePeriod(time.Now()))
	s.Require().NoError(err)
	s.EqualValues(2, m.DepartmentCount)

	s.Run("parent of another tenant", func() {
		_, err := s.service.CreateDepartment(ctx, s.admin(s.tenantB), dto.CreateDepartmentRequest{Code: "x", Name: "X", ParentID: &parent.ID})
		s.Require().Error(err)
		s.True(ierr.IsValidation(err))
	})

	s.Run("no tenant in scope", func() {
		_, err := s.service.CreateDepartment(ctx, s.operator(), dto.CreateDepartmentRequest{Code: "x", Name: "X"})
		s.Require().Error(err)
		s.True(ierr.IsInvalidTenant(err))
	})

	resp, err := s.service.ListDepartments(ctx, s.admin(s.tenantB))
	s.Require().NoError(err)
	s.Zero(resp.Pagination.Total)
}
