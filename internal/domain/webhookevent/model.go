package webhookevent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flexprice/tenantcore/internal/types"
)

// WebhookEvent is the durable record of an inbound billing notification,
// written before any processing
type WebhookEvent struct {
	ID                 string                   `json:"id"`
	Provider           types.BillingProvider    `json:"provider"`
	ExternalEventID    string                   `json:"external_event_id"`
	EventType          string                   `json:"event_type"`
	NormalizedType     types.BillingEventType   `json:"normalized_type,omitempty"`
	Payload            json.RawMessage          `json:"payload"`
	Signature          string                   `json:"-"`
	SignatureValid     bool                     `json:"signature_valid"`
	TenantID           *string                  `json:"tenant_id,omitempty"`
	SubscriptionID     *string                  `json:"subscription_id,omitempty"`
	ResolvedVia        types.ResolutionStrategy `json:"resolved_via,omitempty"`
	ResolutionConflict string                   `json:"resolution_conflict,omitempty"`
	Processed          bool                     `json:"processed"`
	ProcessedAt        *time.Time               `json:"processed_at,omitempty"`
	Error              string                   `json:"error,omitempty"`
	Attempts           int                      `json:"attempts"`
	ReceivedAt         time.Time                `json:"received_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// MarkProcessed clears any previous error
func (e *WebhookEvent) MarkProcessed(at time.Time) {
	e.Processed = true
	e.ProcessedAt = &at
	e.Error = ""
}

func (e *WebhookEvent) MarkFailed(err error) {
	e.Processed = false
	e.Error = err.Error()
}

type Repository interface {
	// Create inserts the row; a second row for the same provider and
	// external id fails with ErrAlreadyExists
	Create(ctx context.Context, e *WebhookEvent) error
	Get(ctx context.Context, id string) (*WebhookEvent, error)
	GetByExternalID(ctx context.Context, provider types.BillingProvider, externalEventID string) (*WebhookEvent, error)
	List(ctx context.Context, filter *types.WebhookEventFilter) ([]*WebhookEvent, error)
	Count(ctx context.Context, filter *types.WebhookEventFilter) (int, error)
	Update(ctx context.Context, e *WebhookEvent) error
	// GetForUpdate reads the row with a row lock when inside a transaction.
	// Concurrent deliveries of one event serialize on it.
	GetForUpdate(ctx context.Context, id string) (*WebhookEvent, error)
	// UpdateUnprocessed writes e only while the stored row is unprocessed
	// and reports whether it did
	UpdateUnprocessed(ctx context.Context, e *WebhookEvent) (bool, error)
}
