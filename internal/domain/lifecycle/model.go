package lifecycle

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/types"
)

// Event is the append-only record of one lifecycle transition or
// status-preserving lifecycle action (plan change, data export)
type Event struct {
	ID             string                   `json:"id"`
	TenantID       string                   `json:"tenant_id"`
	EventType      types.LifecycleEventType `json:"event_type"`
	PreviousStatus types.TenantStatus       `json:"previous_status"`
	NewStatus      types.TenantStatus       `json:"new_status"`
	Reason         string                   `json:"reason,omitempty"`
	ActorType      types.ActorType          `json:"actor_type"`
	ActorID        string                   `json:"actor_id,omitempty"`
	Metadata       map[string]any           `json:"metadata,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// Actor identifies who or what triggered a change
type Actor struct {
	Type types.ActorType
	ID   string
}

// Repository exposes append and read only; events are never updated or
// deleted.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	ListByTenant(ctx context.Context, tenantID string, filter *types.QueryFilter) ([]*Event, error)
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}
