package payload

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/flexprice/tenantcore/internal/domain/plan"
	"github.com/flexprice/tenantcore/internal/domain/tenant"
	webhookDto "github.com/flexprice/tenantcore/internal/webhook/dto"
)

// Notification is a rendered-ready email for a tenant's administrator
type Notification struct {
	TenantID     string
	ToAddress    string
	Subject      string
	TemplatePath string
	Data         map[string]interface{}
}

// PayloadBuilder turns a bus event into a notification. A nil notification
// means the event is not notified.
type PayloadBuilder interface {
	BuildPayload(ctx context.Context, eventName string, data json.RawMessage) (*Notification, error)
}

// Services are the read dependencies the builders need
type Services struct {
	TenantRepo tenant.Repository
	PlanRepo   plan.Repository
}

type Factory struct {
	builders map[string]PayloadBuilder
}

func NewFactory(services *Services) *Factory {
	return &Factory{
		builders: map[string]PayloadBuilder{
			webhookDto.EventPrefixLifecycle: NewLifecyclePayloadBuilder(services),
			webhookDto.EventPrefixAlert:     NewAlertPayloadBuilder(services),
		},
	}
}

// GetBuilder returns the builder responsible for eventName
func (f *Factory) GetBuilder(eventName string) (PayloadBuilder, bool) {
	for prefix, b := range f.builders {
		if strings.HasPrefix(eventName, prefix) {
			return b, true
		}
	}
	return nil, false
}
