package tenancy

import (
	"context"
	"testing"

	"github.com/flexprice/tenantcore/internal/auth"
	"github.com/flexprice/tenantcore/internal/config"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type ResolverSuite struct {
	suite.Suite
	ctx      context.Context
	auth     *auth.Provider
	tenants  *testutil.InMemoryTenantStore
	resolver *Resolver
}

func TestResolver(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.auth = auth.NewProvider(config.GetDefaultConfig())
	s.tenants = testutil.NewInMemoryTenantStore()
	s.resolver = NewResolver(s.auth, s.tenants, logger.NewNopLogger())

	for _, t := range []*domainTenant.Tenant{
		{ID: "ten_acme", Name: "Acme", Domain: lo.ToPtr("acme.example.com"), Status: types.TenantStatusActive},
		{ID: "ten_gone", Name: "Gone", Status: types.TenantStatusDeleted},
	} {
		s.Require().NoError(s.tenants.Create(s.ctx, t))
	}
}

func (s *ResolverSuite) bearer(tenantID, role string) string {
	token, err := s.auth.GenerateToken("user_1", tenantID, role)
	s.Require().NoError(err)
	return "Bearer " + token
}

func (s *ResolverSuite) TestClaimOnly() {
	res, err := s.resolver.Resolve(s.ctx, Request{Authorization: s.bearer("ten_acme", "")})
	s.Require().NoError(err)
	s.Equal("ten_acme", res.TenantID)
	s.Equal(SourceClaim, res.Source)
	s.Equal(types.CapabilityTenantMember, res.Capability)
}

func (s *ResolverSuite) TestClaimAndMatchingSelector() {
	for _, selector := range []string{"ten_acme", "acme.example.com", "ACME.example.com"} {
		res, err := s.resolver.Resolve(s.ctx, Request{
			Authorization: s.bearer("ten_acme", types.RoleClaimAdmin),
			Selector:      selector,
		})
		s.Require().NoError(err, selector)
		s.Equal("ten_acme", res.TenantID)
	}
}

func (s *ResolverSuite) TestClaimSelectorMismatch() {
	// ten_widgetco does not exist: the mismatch is decided without a lookup
	_, err := s.resolver.Resolve(s.ctx, Request{
		Authorization: s.bearer("ten_acme", ""),
		Selector:      "ten_widgetco",
	})
	s.Require().Error(err)
	s.True(ierr.IsBoundaryViolation(err))
	s.Equal(403, ierr.HTTPStatusFromErr(err))
}

func (s *ResolverSuite) TestSelectorOnly() {
	res, err := s.resolver.Resolve(s.ctx, Request{
		Authorization: s.bearer("", ""),
		Selector:      "acme.example.com",
	})
	s.Require().NoError(err)
	s.Equal("ten_acme", res.TenantID)
	s.Equal(SourceSelector, res.Source)

	_, err = s.resolver.Resolve(s.ctx, Request{
		Authorization: s.bearer("", ""),
		Selector:      "ten_unknown",
	})
	s.True(ierr.IsInvalidTenant(err))

	_, err = s.resolver.Resolve(s.ctx, Request{
		Authorization: s.bearer("", ""),
		Selector:      "ten_gone",
	})
	s.True(ierr.IsInvalidTenant(err))
}

func (s *ResolverSuite) TestPlatformOperator() {
	res, err := s.resolver.Resolve(s.ctx, Request{
		Authorization: s.bearer("", types.RoleClaimPlatformOperator),
		Selector:      "ten_acme",
	})
	s.Require().NoError(err)
	s.True(res.IsPlatform())
	s.Equal(types.CapabilityPlatformOperator, res.Capability)

	ctx := res.WithContext(s.ctx)
	s.Equal(types.PlatformTenantID, types.GetTenantID(ctx))
	s.Equal(types.CapabilityPlatformOperator, types.GetCapability(ctx))
}

func (s *ResolverSuite) TestRejections() {
	_, err := s.resolver.Resolve(s.ctx, Request{})
	s.True(ierr.IsUnauthenticated(err))

	_, err = s.resolver.Resolve(s.ctx, Request{Authorization: "Bearer garbage"})
	s.True(ierr.IsUnauthenticated(err))

	_, err = s.resolver.Resolve(s.ctx, Request{Authorization: s.bearer("", "")})
	s.True(ierr.IsInvalidTenant(err))
}
