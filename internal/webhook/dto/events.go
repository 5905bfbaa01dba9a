package webhookDto

import (
	"time"

	"github.com/flexprice/tenantcore/internal/types"
)

// event name prefixes; the full name appends the lifecycle event type or
// the alert type, e.g. tenant.lifecycle.suspended
const (
	EventPrefixLifecycle = "tenant.lifecycle."
	EventPrefixAlert     = "tenant.alert."
)

// message metadata keys
const (
	MetadataEventName = "event_name"
	MetadataTenantID  = "tenant_id"
)

// InternalLifecycleEvent is the bus representation of a lifecycle event
type InternalLifecycleEvent struct {
	EventID        string                   `json:"event_id"`
	EventType      types.LifecycleEventType `json:"event_type"`
	TenantID       string                   `json:"tenant_id"`
	PreviousStatus types.TenantStatus       `json:"previous_status"`
	NewStatus      types.TenantStatus       `json:"new_status"`
	Reason         string                   `json:"reason,omitempty"`
	ActorType      types.ActorType          `json:"actor_type"`
	ActorID        string                   `json:"actor_id,omitempty"`
	Metadata       map[string]any           `json:"metadata,omitempty"`
	OccurredAt     time.Time                `json:"occurred_at"`
}

// InternalAlertEvent represents the internal event structure for alert notifications
type InternalAlertEvent struct {
	AlertID     string                 `json:"alert_id"`
	AlertType   types.AlertType        `json:"alert_type"`
	TenantID    string                 `json:"tenant_id"`
	EntityType  string                 `json:"entity_type"`
	EntityID    string                 `json:"entity_id,omitempty"`
	AlertMetric types.AlertMetric      `json:"alert_metric"`
	AlertState  types.AlertState       `json:"alert_state"`
	AlertInfo   map[string]interface{} `json:"alert_info,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}
