package isolation

import (
	"context"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
)

// Elevation is the proof that the bypass gate admitted one request onto an
// allow-listed administrative surface. Its fields are unexported, so the
// only way to obtain an active Elevation is AllowList.Elevate.
type Elevation struct {
	operatorID string
	path       string
}

// Active reports whether the elevation was granted
func (e Elevation) Active() bool {
	return e.operatorID != ""
}

func (e Elevation) OperatorID() string {
	return e.operatorID
}

func (e Elevation) Path() string {
	return e.path
}

// Scope is the resolved tenant boundary a storage call runs under. It is
// built once per request (or per background task) and passed explicitly to
// every gate method.
type Scope struct {
	TenantID   string
	ActorID    string
	Capability types.Capability
	Elevation  Elevation
}

// TenantScope is the ordinary request scope of a tenant user
func TenantScope(tenantID, actorID string, capability types.Capability) Scope {
	return Scope{
		TenantID:   tenantID,
		ActorID:    actorID,
		Capability: capability,
	}
}

// SystemScope is used by background work acting on behalf of one tenant
// (provisioning, monitor, webhook processing).
func SystemScope(tenantID string) Scope {
	return Scope{
		TenantID:   tenantID,
		ActorID:    types.DefaultUserID,
		Capability: types.CapabilitySystem,
	}
}

// ScopeFromContext builds the scope from the values the resolver placed on
// the request context. The elevation is never read from the context; it has
// to be attached with WithElevation by the caller holding it.
func ScopeFromContext(ctx context.Context) Scope {
	return Scope{
		TenantID:   types.GetTenantID(ctx),
		ActorID:    types.GetUserID(ctx),
		Capability: types.GetCapability(ctx),
	}
}

// WithElevation returns a copy of the scope carrying e
func (s Scope) WithElevation(e Elevation) Scope {
	s.Elevation = e
	return s
}

func (s Scope) Elevated() bool {
	return s.Elevation.Active()
}

// IsPlatform reports whether the scope resolved to the platform sentinel
func (s Scope) IsPlatform() bool {
	return s.TenantID == types.PlatformTenantID
}

// StorageTenant returns the tenant id usable as a storage filter value, or
// empty when the scope has none (platform sentinel or unresolved).
func (s Scope) StorageTenant() string {
	if s.IsPlatform() {
		return ""
	}
	return s.TenantID
}

// RequireElevated fails unless the scope carries an active elevation
func (s Scope) RequireElevated() error {
	if !s.Elevated() {
		return ierr.NewError("operation requires elevated access").
			WithHint("This operation is only available on administrative endpoints").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}

// RequireTenant fails unless the scope names a storage tenant
func (s Scope) RequireTenant() error {
	if s.StorageTenant() == "" {
		return ierr.NewError("scope has no tenant").
			WithHint("A tenant must be resolved for this operation").
			Mark(ierr.ErrInvalidTenant)
	}
	return nil
}
