package dto

import (
	"github.com/flexprice/tenantcore/internal/domain/webhookevent"
	"github.com/flexprice/tenantcore/internal/types"
)

type WebhookEventResponse struct {
	*webhookevent.WebhookEvent
}

type ListWebhookEventsResponse = types.ListResponse[*WebhookEventResponse]

// WebhookAckResponse is what the provider sees, whatever happened inside
type WebhookAckResponse struct {
	Received bool `json:"received"`
}
