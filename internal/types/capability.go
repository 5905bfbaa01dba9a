package types

import (
	ierr "github.com/flexprice/tenantcore/internal/errors"
)

// Capability is resolved once per request from the caller's credentials.
// Privilege decisions compare capabilities, never raw role strings.
type Capability int

const (
	CapabilityNone Capability = iota
	CapabilityTenantMember
	CapabilityTenantAdmin
	CapabilityPlatformOperator
	// CapabilitySystem is held by background workers and webhook processing
	CapabilitySystem
)

// role claim values accepted in credentials
const (
	RoleClaimMember           = "member"
	RoleClaimAdmin            = "admin"
	RoleClaimPlatformOperator = "platform_operator"
)

func (c Capability) String() string {
	switch c {
	case CapabilityTenantMember:
		return "tenant_member"
	case CapabilityTenantAdmin:
		return "tenant_admin"
	case CapabilityPlatformOperator:
		return "platform_operator"
	case CapabilitySystem:
		return "system"
	default:
		return "none"
	}
}

// ParseCapability maps a role claim to its capability. Unknown roles are
// rejected rather than downgraded.
func ParseCapability(role string) (Capability, error) {
	switch role {
	case "", RoleClaimMember:
		return CapabilityTenantMember, nil
	case RoleClaimAdmin:
		return CapabilityTenantAdmin, nil
	case RoleClaimPlatformOperator:
		return CapabilityPlatformOperator, nil
	default:
		return CapabilityNone, ierr.NewError("unknown role claim").
			WithHint("Credential carries an unsupported role").
			WithReportableDetails(map[string]any{"role": role}).
			Mark(ierr.ErrUnauthenticated)
	}
}

// Includes reports whether c grants at least what required grants.
func (c Capability) Includes(required Capability) bool {
	switch required {
	case CapabilityTenantMember:
		return c == CapabilityTenantMember || c == CapabilityTenantAdmin
	case CapabilityTenantAdmin:
		return c == CapabilityTenantAdmin
	default:
		return c == required
	}
}
