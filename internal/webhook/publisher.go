package webhook

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/domain/alert"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/pubsub"
	"github.com/flexprice/tenantcore/internal/types"
	webhookDto "github.com/flexprice/tenantcore/internal/webhook/dto"
)

// Publisher puts lifecycle events and alerts on the event bus. Callers run
// it after the producing transaction has committed.
type Publisher interface {
	PublishLifecycleEvent(ctx context.Context, e *lifecycle.Event) error
	PublishAlert(ctx context.Context, a *alert.Alert) error
}

type publisher struct {
	pubsub pubsub.PubSub
	topic  string
	logger *logger.Logger
}

func NewPublisher(ps pubsub.PubSub, cfg *config.Configuration, log *logger.Logger) Publisher {
	return &publisher{
		pubsub: ps,
		topic:  cfg.Events.Topic,
		logger: log,
	}
}

func (p *publisher) PublishLifecycleEvent(ctx context.Context, e *lifecycle.Event) error {
	return p.publish(ctx, webhookDto.EventPrefixLifecycle+string(e.EventType), e.TenantID, &webhookDto.InternalLifecycleEvent{
		EventID:        e.ID,
		EventType:      e.EventType,
		TenantID:       e.TenantID,
		PreviousStatus: e.PreviousStatus,
		NewStatus:      e.NewStatus,
		Reason:         e.Reason,
		ActorType:      e.ActorType,
		ActorID:        e.ActorID,
		Metadata:       e.Metadata,
		OccurredAt:     e.CreatedAt,
	})
}

func (p *publisher) PublishAlert(ctx context.Context, a *alert.Alert) error {
	return p.publish(ctx, webhookDto.EventPrefixAlert+string(a.AlertType), a.TenantID, &webhookDto.InternalAlertEvent{
		AlertID:     a.ID,
		AlertType:   a.AlertType,
		TenantID:    a.TenantID,
		EntityType:  a.EntityType,
		EntityID:    a.EntityID,
		AlertMetric: a.AlertMetric,
		AlertState:  a.AlertState,
		AlertInfo:   a.AlertInfo,
		OccurredAt:  a.CreatedAt,
	})
}

func (p *publisher) publish(ctx context.Context, eventName, tenantID string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode event").
			Mark(ierr.ErrSystem)
	}

	msg := message.NewMessage(types.GenerateUUID(), payload)
	msg.Metadata.Set(webhookDto.MetadataEventName, eventName)
	msg.Metadata.Set(webhookDto.MetadataTenantID, tenantID)
	msg.SetContext(ctx)

	if err := p.pubsub.Publish(ctx, p.topic, msg); err != nil {
		p.logger.WithContext(ctx).Errorw("failed to publish event",
			"event_name", eventName,
			"tenant_id", tenantID,
			"error", err,
		)
		return ierr.WithError(err).
			WithHint("Failed to publish event").
			Mark(ierr.ErrSystem)
	}

	p.logger.WithContext(ctx).Debugw("published event",
		"event_name", eventName,
		"tenant_id", tenantID,
		"message_id", msg.UUID,
	)
	return nil
}
