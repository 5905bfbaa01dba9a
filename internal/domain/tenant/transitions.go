package tenant

import (
	"github.com/flexprice/tenantcore/internal/types"
)

// Transition is one edge of the lifecycle graph
type Transition struct {
	From  types.TenantStatus
	To    types.TenantStatus
	Event types.LifecycleEventType
}

// Transitions is the complete set of allowed status changes
var Transitions = []Transition{
	{types.TenantStatusProvisioning, types.TenantStatusActive, types.LifecycleEventProvisioningCompleted},
	{types.TenantStatusProvisioning, types.TenantStatusProvisioningFailed, types.LifecycleEventProvisioningFailed},
	{types.TenantStatusProvisioningFailed, types.TenantStatusProvisioning, types.LifecycleEventProvisioningRetried},
	{types.TenantStatusActive, types.TenantStatusSuspended, types.LifecycleEventSuspended},
	{types.TenantStatusSuspended, types.TenantStatusActive, types.LifecycleEventResumed},
	{types.TenantStatusSuspended, types.TenantStatusCancelled, types.LifecycleEventCancelled},
	{types.TenantStatusActive, types.TenantStatusCancelled, types.LifecycleEventCancelled},
	{types.TenantStatusCancelled, types.TenantStatusPendingDeletion, types.LifecycleEventDeletionScheduled},
	{types.TenantStatusPendingDeletion, types.TenantStatusDeleted, types.LifecycleEventDeleted},
}

// FindTransition returns the edge from -> to, if the graph has one
func FindTransition(from, to types.TenantStatus) (Transition, bool) {
	for _, t := range Transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// CanTransition reports whether from -> to is an edge of the graph
func CanTransition(from, to types.TenantStatus) bool {
	_, ok := FindTransition(from, to)
	return ok
}

// TargetsFrom lists the statuses reachable in one step
func TargetsFrom(from types.TenantStatus) []types.TenantStatus {
	var out []types.TenantStatus
	for _, t := range Transitions {
		if t.From == from {
			out = append(out, t.To)
		}
	}
	return out
}
