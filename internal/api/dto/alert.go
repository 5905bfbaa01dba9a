package dto

import (
	"time"

	"github.com/flexprice/tenantcore/internal/domain/alert"
	"github.com/flexprice/tenantcore/internal/types"
)

// AlertResponse represents the response for alert operations
type AlertResponse struct {
	ID          string                 `json:"id"`
	AlertType   types.AlertType        `json:"alert_type"`
	EntityType  string                 `json:"entity_type"`
	EntityID    string                 `json:"entity_id,omitempty"`
	AlertMetric types.AlertMetric      `json:"alert_metric"`
	AlertState  types.AlertState       `json:"alert_state"`
	AlertInfo   map[string]interface{} `json:"alert_info,omitempty"`
	TenantID    string                 `json:"tenant_id"`
	CreatedAt   time.Time              `json:"created_at"`
}

// NewAlertResponse creates a new alert response from domain model
func NewAlertResponse(a *alert.Alert) *AlertResponse {
	if a == nil {
		return nil
	}
	return &AlertResponse{
		ID:          a.ID,
		AlertType:   a.AlertType,
		EntityType:  a.EntityType,
		EntityID:    a.EntityID,
		AlertMetric: a.AlertMetric,
		AlertState:  a.AlertState,
		AlertInfo:   a.AlertInfo,
		TenantID:    a.TenantID,
		CreatedAt:   a.CreatedAt,
	}
}

// ListAlertsResponse represents the response for listing alerts
type ListAlertsResponse = types.ListResponse[*AlertResponse]
