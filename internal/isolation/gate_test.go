package isolation_test

import (
	"context"
	"testing"

	"github.com/flexprice/tenantcore/internal/domain/directory"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/stretchr/testify/suite"
)

type GateSuite struct {
	suite.Suite
	ctx    context.Context
	roles  *testutil.InMemoryEntityStore[*directory.Role]
	users  *testutil.InMemoryEntityStore[*directory.User]
	gate   *isolation.Gate[*directory.Role]
	ugate  *isolation.Gate[*directory.User]
	acme   isolation.Scope
	widget isolation.Scope
}

func TestGate(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctx = context.Background()
	client := testutil.NewInMemoryClient()
	log := logger.NewNopLogger()

	s.roles = testutil.NewInMemoryEntityStore[*directory.Role]()
	s.users = testutil.NewInMemoryEntityStore[*directory.User]()
	s.gate = isolation.NewGate[*directory.Role]("role", s.roles, client, log)
	s.ugate = isolation.NewGate[*directory.User]("user", s.users, client, log)

	s.acme = isolation.TenantScope("acme", "user-a", types.CapabilityTenantAdmin)
	s.widget = isolation.TenantScope("widgetco", "user-w", types.CapabilityTenantAdmin)

	s.Require().NoError(s.gate.Create(s.ctx, s.acme, &directory.Role{ID: "role-a1", Name: "admin"}))
	s.Require().NoError(s.gate.Create(s.ctx, s.acme, &directory.Role{ID: "role-a2", Name: "manager"}))
	s.Require().NoError(s.gate.Create(s.ctx, s.widget, &directory.Role{ID: "role-w1", Name: "admin"}))
}

func (s *GateSuite) operator(path string) isolation.Scope {
	scope := isolation.TenantScope(types.PlatformTenantID, "op-1", types.CapabilityPlatformOperator)
	elevation, ok := isolation.DefaultAllowList().Elevate(scope.Capability, scope.ActorID, path)
	if ok {
		scope = scope.WithElevation(elevation)
	}
	return scope
}

func (s *GateSuite) TestCreateStampsScopeTenant() {
	role := &directory.Role{ID: "role-a3", Name: "auditor"}
	role.TenantID = "widgetco"

	s.Require().NoError(s.gate.Create(s.ctx, s.acme, role))

	stored, err := s.roles.Get(s.ctx, "role-a3")
	s.Require().NoError(err)
	s.Equal("acme", stored.TenantID)
}

func (s *GateSuite) TestCreateWithoutTenantIsRejected() {
	err := s.gate.Create(s.ctx, s.operator("/v1/employees"), &directory.Role{ID: "role-x", Name: "x"})
	s.True(ierr.IsInvalidTenant(err))
}

func (s *GateSuite) TestListIsFilteredByTenant() {
	items, total, err := s.gate.List(s.ctx, s.acme, types.NewDefaultQueryFilter())
	s.Require().NoError(err)
	s.Equal(2, total)
	for _, r := range items {
		s.Equal("acme", r.TenantID)
	}

	items, total, err = s.gate.List(s.ctx, s.widget, nil)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal("role-w1", items[0].ID)
}

func (s *GateSuite) TestOperatorOnTenantEndpointSeesNothing() {
	items, total, err := s.gate.List(s.ctx, s.operator("/v1/employees"), nil)
	s.Require().NoError(err)
	s.Empty(items)
	s.Zero(total)
}

func (s *GateSuite) TestElevatedScopeSeesAllTenants() {
	items, total, err := s.gate.List(s.ctx, s.operator("/v1/admin/users"), nil)
	s.Require().NoError(err)
	s.Len(items, 3)
	s.Equal(3, total)
}

func (s *GateSuite) TestListPagination() {
	limit, offset := 1, 1
	items, total, err := s.gate.List(s.ctx, s.acme, &types.QueryFilter{Limit: &limit, Offset: &offset})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(items, 1)
	s.Equal("role-a2", items[0].ID)
}

func (s *GateSuite) TestCrossTenantGetIsNotFound() {
	_, err := s.gate.Get(s.ctx, s.widget, "role-a1")
	s.True(ierr.IsNotFound(err))

	role, err := s.gate.Get(s.ctx, s.acme, "role-a1")
	s.Require().NoError(err)
	s.Equal("admin", role.Name)
}

func (s *GateSuite) TestListTenantRejectsOtherTenant() {
	_, err := s.gate.ListTenant(s.ctx, s.widget, "acme")
	s.True(ierr.IsBoundaryViolation(err))

	items, err := s.gate.ListTenant(s.ctx, s.operator("/v1/admin/tenants/acme"), "acme")
	s.Require().NoError(err)
	s.Len(items, 2)
}

func (s *GateSuite) TestCrossTenantUpdateIsBoundaryViolation() {
	err := s.gate.Update(s.ctx, s.widget, &directory.Role{ID: "role-a1", Name: "owned"})
	s.True(ierr.IsBoundaryViolation(err))

	stored, _ := s.roles.Get(s.ctx, "role-a1")
	s.Equal("admin", stored.Name)
}

func (s *GateSuite) TestUpdateFuncChecksOwnershipBeforeApply() {
	applied := false
	apply := func(current *directory.Role) (*directory.Role, error) {
		applied = true
		next := *current
		next.Name = "owned"
		return &next, nil
	}

	_, err := s.gate.UpdateFunc(s.ctx, s.widget, "role-a1", apply)
	s.True(ierr.IsBoundaryViolation(err))
	s.False(applied)

	_, err = s.gate.UpdateFunc(s.ctx, s.widget, "role-missing", apply)
	s.True(ierr.IsNotFound(err))

	updated, err := s.gate.UpdateFunc(s.ctx, s.acme, "role-a1", apply)
	s.Require().NoError(err)
	s.True(applied)
	s.Equal("owned", updated.Name)
	s.Equal("acme", updated.TenantID)
}

func (s *GateSuite) TestTenantReassignmentIsTamper() {
	role := &directory.Role{ID: "role-a1", Name: "admin"}
	role.TenantID = "widgetco"

	err := s.gate.Update(s.ctx, s.acme, role)
	s.True(ierr.IsTenantTamper(err))

	// elevation does not permit reassignment either
	err = s.gate.Update(s.ctx, s.operator("/v1/admin/users"), role)
	s.True(ierr.IsTenantTamper(err))

	stored, _ := s.roles.Get(s.ctx, "role-a1")
	s.Equal("acme", stored.TenantID)
}

func (s *GateSuite) TestUpdateFillsMissingTenant() {
	err := s.gate.Update(s.ctx, s.acme, &directory.Role{ID: "role-a2", Name: "lead"})
	s.Require().NoError(err)

	stored, _ := s.roles.Get(s.ctx, "role-a2")
	s.Equal("lead", stored.Name)
	s.Equal("acme", stored.TenantID)
}

func (s *GateSuite) TestCrossTenantDelete() {
	err := s.gate.Delete(s.ctx, s.widget, "role-a2")
	s.True(ierr.IsBoundaryViolation(err))

	s.Require().NoError(s.gate.Delete(s.ctx, s.acme, "role-a2"))
	_, err = s.roles.Get(s.ctx, "role-a2")
	s.True(ierr.IsNotFound(err))
}

func (s *GateSuite) TestDeletionProtectedEntity() {
	s.Require().NoError(s.ugate.Create(s.ctx, s.acme, &directory.User{ID: "user-1", Email: "a@acme.test"}))

	err := s.ugate.Delete(s.ctx, s.acme, "user-1")
	s.True(ierr.IsInvalidOperation(err))

	err = s.ugate.Delete(s.ctx, s.operator("/v1/admin/users"), "user-1")
	s.True(ierr.IsInvalidOperation(err))
}

func (s *GateSuite) TestRejectedBatchRollsBack() {
	batch := []*directory.Role{
		{ID: "role-b1", Name: "one"},
		{ID: "role-b2", Name: "two"},
		{ID: "role-b3", Name: "admin"}, // natural key already taken in acme
	}

	err := s.gate.CreateBatch(s.ctx, s.acme, batch)
	s.True(ierr.IsAlreadyExists(err))

	_, total, err := s.gate.List(s.ctx, s.acme, nil)
	s.Require().NoError(err)
	s.Equal(2, total)
}
