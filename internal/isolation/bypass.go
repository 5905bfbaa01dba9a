package isolation

import (
	"strings"

	"github.com/flexprice/tenantcore/internal/types"
)

// administrative surfaces a platform operator may be elevated on
const (
	AdminPrefixUsers    = "/v1/admin/users"
	AdminPrefixTenants  = "/v1/admin/tenants"
	AdminPrefixPlans    = "/v1/admin/plans"
	AdminPrefixWebhooks = "/v1/admin/webhooks"
)

// AllowList is the fixed set of path prefixes that may receive bypass
type AllowList struct {
	prefixes []string
}

func NewAllowList(prefixes ...string) *AllowList {
	return &AllowList{prefixes: prefixes}
}

func DefaultAllowList() *AllowList {
	return NewAllowList(
		AdminPrefixUsers,
		AdminPrefixTenants,
		AdminPrefixPlans,
		AdminPrefixWebhooks,
	)
}

// Matches reports whether path is one of the prefixes or below one. A prefix
// only matches on a segment boundary, so /v1/admin/usersx does not match.
func (a *AllowList) Matches(path string) bool {
	for _, prefix := range a.prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Elevate grants an elevation when both conditions hold: the caller is a
// platform operator and the path is allow-listed.
func (a *AllowList) Elevate(capability types.Capability, operatorID, path string) (Elevation, bool) {
	if capability != types.CapabilityPlatformOperator || operatorID == "" {
		return Elevation{}, false
	}
	if !a.Matches(path) {
		return Elevation{}, false
	}
	return Elevation{operatorID: operatorID, path: path}, true
}
