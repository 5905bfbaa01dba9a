package payload

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flexprice/tenantcore/internal/email"
	"github.com/flexprice/tenantcore/internal/types"
	webhookDto "github.com/flexprice/tenantcore/internal/webhook/dto"
)

// AlertPayloadBuilder builds notifications for alert events. Only a hard
// quota breach is mailed; warnings stay on the bus.
type AlertPayloadBuilder struct {
	services *Services
}

// NewAlertPayloadBuilder creates a new alert payload builder
func NewAlertPayloadBuilder(services *Services) PayloadBuilder {
	return &AlertPayloadBuilder{
		services: services,
	}
}

// BuildPayload builds the notification for alert events
func (b *AlertPayloadBuilder) BuildPayload(ctx context.Context, eventName string, data json.RawMessage) (*Notification, error) {
	var internalEvent webhookDto.InternalAlertEvent
	if err := json.Unmarshal(data, &internalEvent); err != nil {
		return nil, err
	}

	if internalEvent.AlertType != types.AlertTypeQuotaExceeded {
		return nil, nil
	}

	t, err := b.services.TenantRepo.Get(ctx, internalEvent.TenantID)
	if err != nil {
		return nil, err
	}

	vars := map[string]interface{}{
		"admin_name":  t.AdminName,
		"tenant_name": t.Name,
		"plan_name":   t.PlanName,
		"metric":      string(internalEvent.AlertMetric),
		"usage":       fmt.Sprint(internalEvent.AlertInfo["usage"]),
		"limit":       fmt.Sprint(internalEvent.AlertInfo["limit"]),
	}
	if suggested, ok := internalEvent.AlertInfo["suggested_plan"].(string); ok && suggested != "" {
		vars["suggested_plan"] = suggested
	}

	return &Notification{
		TenantID:     t.ID,
		ToAddress:    t.AdminEmail,
		Subject:      "You have reached a plan limit",
		TemplatePath: email.TemplateQuotaExceeded,
		Data:         vars,
	}, nil
}
