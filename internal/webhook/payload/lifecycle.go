package payload

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flexprice/tenantcore/internal/email"
	"github.com/flexprice/tenantcore/internal/types"
	webhookDto "github.com/flexprice/tenantcore/internal/webhook/dto"
)

// LifecyclePayloadBuilder builds notifications for lifecycle events
type LifecyclePayloadBuilder struct {
	services *Services
}

func NewLifecyclePayloadBuilder(services *Services) PayloadBuilder {
	return &LifecyclePayloadBuilder{services: services}
}

func (b *LifecyclePayloadBuilder) BuildPayload(ctx context.Context, eventName string, data json.RawMessage) (*Notification, error) {
	var event webhookDto.InternalLifecycleEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}

	var subject, templatePath string
	switch event.EventType {
	case types.LifecycleEventSuspended:
		subject, templatePath = "Your account has been suspended", email.TemplateSuspended
	case types.LifecycleEventCancelled:
		subject, templatePath = "Your subscription has been cancelled", email.TemplateCancelled
	case types.LifecycleEventProvisioningFailed:
		subject, templatePath = "Your account setup is delayed", email.TemplateProvisioningFailed
	default:
		return nil, nil
	}

	t, err := b.services.TenantRepo.Get(ctx, event.TenantID)
	if err != nil {
		return nil, err
	}

	vars := map[string]interface{}{
		"admin_name":  t.AdminName,
		"tenant_name": t.Name,
		"reason":      event.Reason,
	}
	if t.GracePeriodEndsAt != nil {
		vars["grace_period_ends_at"] = t.GracePeriodEndsAt.Format(time.RFC1123)
	}
	if t.ScheduledDeletionAt != nil {
		vars["scheduled_deletion_at"] = t.ScheduledDeletionAt.Format(time.RFC1123)
	}

	return &Notification{
		TenantID:     t.ID,
		ToAddress:    t.AdminEmail,
		Subject:      subject,
		TemplatePath: templatePath,
		Data:         vars,
	}, nil
}
