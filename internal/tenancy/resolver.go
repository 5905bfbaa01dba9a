// Package tenancy derives the tenant a request runs under from its
// credential and tenant selector.
package tenancy

import (
	"context"
	"strings"

	"github.com/flexprice/tenantcore/internal/auth"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

// Source records which signal decided the tenant
type Source string

const (
	SourceClaim    Source = "claim"
	SourceSelector Source = "selector"
	SourcePlatform Source = "platform"
)

// Request carries the raw tenant signals of one inbound request
type Request struct {
	// Authorization is the header value, with or without the Bearer prefix
	Authorization string
	// Selector is a tenant id or a tenant domain
	Selector string
}

// Resolution is immutable once returned and lives for one request
type Resolution struct {
	TenantID   string
	UserID     string
	Capability types.Capability
	Source     Source
}

func (r Resolution) IsPlatform() bool {
	return r.TenantID == types.PlatformTenantID
}

// WithContext places the resolution on the request context
func (r Resolution) WithContext(ctx context.Context) context.Context {
	ctx = types.SetTenantID(ctx, r.TenantID)
	ctx = types.SetUserID(ctx, r.UserID)
	return types.SetCapability(ctx, r.Capability)
}

type Resolver struct {
	auth    *auth.Provider
	tenants domainTenant.Repository
	logger  *logger.Logger
}

func NewResolver(authProvider *auth.Provider, tenants domainTenant.Repository, log *logger.Logger) *Resolver {
	return &Resolver{
		auth:    authProvider,
		tenants: tenants,
		logger:  log,
	}
}

// Resolve applies the resolution rules:
//   - a platform operator credential yields the platform sentinel; a
//     selector sent alongside it is ignored
//   - claim and selector both present must name the same tenant
//   - a claim alone is authoritative
//   - a selector alone must name an existing tenant
func (r *Resolver) Resolve(ctx context.Context, req Request) (Resolution, error) {
	token := strings.TrimSpace(strings.TrimPrefix(req.Authorization, "Bearer "))
	if token == "" {
		return Resolution{}, ierr.NewError("missing credentials").
			WithHint("Authorization header is required").
			Mark(ierr.ErrUnauthenticated)
	}

	claims, err := r.auth.ValidateToken(token)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{UserID: claims.UserID, Capability: claims.Capability}

	if claims.Capability == types.CapabilityPlatformOperator {
		res.TenantID = types.PlatformTenantID
		res.Source = SourcePlatform
		return res, nil
	}

	selector := strings.TrimSpace(req.Selector)

	switch {
	case claims.TenantID != "" && selector == "":
		res.TenantID = claims.TenantID
		res.Source = SourceClaim
		return res, nil

	case claims.TenantID != "":
		// compare before any lookup so a mismatch never touches storage
		if selector == claims.TenantID {
			res.TenantID = claims.TenantID
			res.Source = SourceClaim
			return res, nil
		}
		if looksLikeTenantID(selector) {
			return Resolution{}, r.mismatch(ctx, claims, selector)
		}
		t, err := r.lookupSelector(ctx, selector)
		if err != nil {
			return Resolution{}, err
		}
		if t.ID != claims.TenantID {
			return Resolution{}, r.mismatch(ctx, claims, selector)
		}
		res.TenantID = claims.TenantID
		res.Source = SourceClaim
		return res, nil

	case selector != "":
		t, err := r.lookupSelector(ctx, selector)
		if err != nil {
			return Resolution{}, err
		}
		res.TenantID = t.ID
		res.Source = SourceSelector
		return res, nil

	default:
		return Resolution{}, ierr.NewError("no tenant in request").
			WithHint("A tenant claim or tenant selector is required").
			Mark(ierr.ErrInvalidTenant)
	}
}

func (r *Resolver) lookupSelector(ctx context.Context, selector string) (*domainTenant.Tenant, error) {
	var (
		t   *domainTenant.Tenant
		err error
	)
	if looksLikeTenantID(selector) {
		t, err = r.tenants.Get(ctx, selector)
	} else {
		t, err = r.findByDomain(ctx, selector)
	}
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.NewError("unknown tenant selector").
				WithHint("The requested tenant does not exist").
				Mark(ierr.ErrInvalidTenant)
		}
		return nil, err
	}
	if t.Status == types.TenantStatusDeleted {
		return nil, ierr.NewError("tenant deleted").
			WithHint("The requested tenant does not exist").
			Mark(ierr.ErrInvalidTenant)
	}
	return t, nil
}

func (r *Resolver) findByDomain(ctx context.Context, domain string) (*domainTenant.Tenant, error) {
	filter := types.NewTenantFilter()
	filter.Domain = strings.ToLower(domain)
	filter.Limit = lo.ToPtr(1)

	tenants, err := r.tenants.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, ierr.NewError("tenant not found").Mark(ierr.ErrNotFound)
	}
	return tenants[0], nil
}

func (r *Resolver) mismatch(ctx context.Context, claims *auth.Claims, selector string) error {
	r.logger.WithContext(ctx).Warnw("tenant claim and selector disagree",
		"claim_tenant", claims.TenantID,
		"selector", selector,
		"user_id", claims.UserID,
	)
	return ierr.NewError("tenant claim does not match selector").
		WithHint("Access denied").
		Mark(ierr.ErrBoundaryViolation)
}

func looksLikeTenantID(selector string) bool {
	return strings.HasPrefix(selector, types.UUID_PREFIX_TENANT+"_")
}
