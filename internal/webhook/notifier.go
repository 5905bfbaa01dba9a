package webhook

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/email"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/pubsub/router"
	webhookDto "github.com/flexprice/tenantcore/internal/webhook/dto"
	"github.com/flexprice/tenantcore/internal/webhook/payload"
)

const (
	notifierHandlerName = "tenant_notifications"
	notifySendRetries   = 3
)

// Notifier consumes the event bus and emails tenant administrators about
// the events that concern them
type Notifier struct {
	factory *payload.Factory
	email   *email.Email
	topic   string
	logger  *logger.Logger
}

func NewNotifier(factory *payload.Factory, mail *email.Email, cfg *config.Configuration, log *logger.Logger) *Notifier {
	return &Notifier{
		factory: factory,
		email:   mail,
		topic:   cfg.Events.Topic,
		logger:  log,
	}
}

// Register subscribes the notifier on r
func (n *Notifier) Register(r *router.Router, subscriber message.Subscriber) {
	r.AddNoPublishHandler(notifierHandlerName, n.topic, subscriber, n.HandleMessage)
}

// HandleMessage builds and sends the notification of one bus message.
// Messages nobody is notified about are acked without side effects.
func (n *Notifier) HandleMessage(msg *message.Message) error {
	ctx := msg.Context()
	eventName := msg.Metadata.Get(webhookDto.MetadataEventName)

	builder, ok := n.factory.GetBuilder(eventName)
	if !ok {
		return nil
	}

	notification, err := builder.BuildPayload(ctx, eventName, json.RawMessage(msg.Payload))
	if err != nil {
		if ierr.IsNotFound(err) {
			// the tenant is gone; nobody left to notify
			n.logger.WithContext(ctx).Infow("skipping notification for missing tenant",
				"event_name", eventName,
				"tenant_id", msg.Metadata.Get(webhookDto.MetadataTenantID),
			)
			return nil
		}
		return err
	}
	if notification == nil || notification.ToAddress == "" {
		return nil
	}

	return n.send(ctx, eventName, notification)
}

func (n *Notifier) send(ctx context.Context, eventName string, notification *payload.Notification) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), notifySendRetries),
		ctx,
	)

	err := backoff.Retry(func() error {
		_, err := n.email.SendEmailWithTemplate(ctx, email.SendEmailWithTemplateRequest{
			ToAddress:    notification.ToAddress,
			Subject:      notification.Subject,
			TemplatePath: notification.TemplatePath,
			Data:         notification.Data,
		})
		return err
	}, policy)
	if err != nil {
		n.logger.WithContext(ctx).Errorw("failed to send notification",
			"event_name", eventName,
			"tenant_id", notification.TenantID,
			"error", err,
		)
		return err
	}

	n.logger.WithContext(ctx).Infow("notification sent",
		"event_name", eventName,
		"tenant_id", notification.TenantID,
		"template", notification.TemplatePath,
	)
	return nil
}
