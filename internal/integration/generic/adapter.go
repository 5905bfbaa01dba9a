// Package generic accepts billing notifications in tenantcore's own JSON
// shape, signed with a hex encoded HMAC-SHA256 of the body.
package generic

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/flexprice/tenantcore/internal/domain/webhookevent"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
)

type Adapter struct {
	provider types.BillingProvider
	secret   []byte
}

func NewAdapter(provider types.BillingProvider, secret string) *Adapter {
	return &Adapter{provider: provider, secret: []byte(secret)}
}

func (a *Adapter) Provider() types.BillingProvider {
	return a.provider
}

func (a *Adapter) SignatureHeader() string {
	return types.HeaderWebhookSig
}

// Sign returns the signature a sender must put in the signature header
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *Adapter) Verify(payload []byte, signature string) error {
	if len(a.secret) == 0 {
		return ierr.NewError("webhook secret not configured").Mark(ierr.ErrValidation)
	}

	decoded, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Signature must be a valid hex string").
			Mark(ierr.ErrValidation)
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), decoded) {
		return ierr.NewError("webhook signature verification failed").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Payload is the wire shape of a generic billing notification
type Payload struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      Data      `json:"data"`
}

type Data struct {
	ObjectID           string                   `json:"object_id"`
	SubscriptionID     string                   `json:"subscription_id,omitempty"`
	CustomerID         string                   `json:"customer_id,omitempty"`
	TenantID           string                   `json:"tenant_id,omitempty"`
	Status             types.SubscriptionStatus `json:"status,omitempty"`
	Plan               string                   `json:"plan,omitempty"`
	BillingPeriod      types.BillingPeriod      `json:"billing_period,omitempty"`
	CurrentPeriodStart *time.Time               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time               `json:"current_period_end,omitempty"`
	TrialEnd           *time.Time               `json:"trial_end,omitempty"`
	CanceledAt         *time.Time               `json:"canceled_at,omitempty"`
	FailureMessage     string                   `json:"failure_message,omitempty"`
	AmountDue          int64                    `json:"amount_due,omitempty"`
	Currency           string                   `json:"currency,omitempty"`
}

var knownTypes = map[types.BillingEventType]struct{}{
	types.BillingEventSubscriptionCreated: {},
	types.BillingEventSubscriptionUpdated: {},
	types.BillingEventSubscriptionDeleted: {},
	types.BillingEventPaymentSucceeded:    {},
	types.BillingEventPaymentFailed:       {},
}

func (a *Adapter) Parse(payload []byte) (*webhookevent.ProviderEvent, error) {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed webhook payload").
			Mark(ierr.ErrValidation)
	}
	if p.ID == "" {
		return nil, ierr.NewError("webhook payload without id").
			WithHint("Webhook payload must carry an id").
			Mark(ierr.ErrValidation)
	}

	eventType := types.BillingEventType(p.Type)
	if _, ok := knownTypes[eventType]; !ok {
		eventType = types.BillingEventIgnored
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	return &webhookevent.ProviderEvent{
		ExternalEventID:        p.ID,
		RawType:                p.Type,
		Type:                   eventType,
		OccurredAt:             p.CreatedAt.UTC(),
		ObjectID:               p.Data.ObjectID,
		ExternalSubscriptionID: p.Data.SubscriptionID,
		ExternalCustomerID:     p.Data.CustomerID,
		TenantHint:             p.Data.TenantID,
		SubscriptionStatus:     p.Data.Status,
		PlanName:               p.Data.Plan,
		BillingPeriod:          p.Data.BillingPeriod,
		CurrentPeriodStart:     p.Data.CurrentPeriodStart,
		CurrentPeriodEnd:       p.Data.CurrentPeriodEnd,
		TrialEnd:               p.Data.TrialEnd,
		CanceledAt:             p.Data.CanceledAt,
		FailureMessage:         p.Data.FailureMessage,
		AmountDue:              p.Data.AmountDue,
		Currency:               p.Data.Currency,
	}, nil
}
