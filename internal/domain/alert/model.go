package alert

import (
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
)

// Alert represents the domain model for an alert
type Alert struct {
	ID          string                 `json:"id"`
	AlertType   types.AlertType        `json:"alert_type"`
	EntityType  string                 `json:"entity_type"`
	EntityID    string                 `json:"entity_id,omitempty"`
	AlertMetric types.AlertMetric      `json:"alert_metric"`
	AlertState  types.AlertState       `json:"alert_state"`
	AlertInfo   map[string]interface{} `json:"alert_info,omitempty"`
	types.BaseModel
}

// Validate validates the alert
func (a *Alert) Validate() error {
	if a.TenantID == "" {
		return ierr.NewError("tenant_id is required").Mark(ierr.ErrValidation)
	}
	if a.EntityType == "" {
		return ierr.NewError("entity_type is required").Mark(ierr.ErrValidation)
	}
	if string(a.AlertMetric) == "" {
		return ierr.NewError("alert_metric is required").Mark(ierr.ErrValidation)
	}
	if a.AlertType == "" {
		return ierr.NewError("alert_type is required").Mark(ierr.ErrValidation)
	}
	return nil
}
