package stripe

import (
	"encoding/json"
	"time"

	"github.com/flexprice/tenantcore/internal/domain/webhookevent"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// metadata key the signup flow writes on stripe customers and subscriptions
const MetadataTenantID = "tenant_id"

// Adapter verifies stripe signatures and normalizes subscription and
// invoice events. It never calls the stripe API.
type Adapter struct {
	secret string
}

func NewAdapter(secret string) *Adapter {
	return &Adapter{secret: secret}
}

func (a *Adapter) Provider() types.BillingProvider {
	return types.BillingProviderStripe
}

func (a *Adapter) SignatureHeader() string {
	return types.HeaderStripeSig
}

func (a *Adapter) Verify(payload []byte, signature string) error {
	if a.secret == "" {
		return ierr.NewError("webhook secret not configured").Mark(ierr.ErrValidation)
	}
	_, err := webhook.ConstructEventWithOptions(payload, signature, a.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (a *Adapter) Parse(payload []byte) (*webhookevent.ProviderEvent, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed stripe event").
			Mark(ierr.ErrValidation)
	}
	if event.ID == "" || event.Data == nil {
		return nil, ierr.NewError("stripe event without id or data").Mark(ierr.ErrValidation)
	}

	out := &webhookevent.ProviderEvent{
		ExternalEventID: event.ID,
		RawType:         string(event.Type),
		Type:            normalizeType(event.Type),
		OccurredAt:      time.Unix(event.Created, 0).UTC(),
	}

	switch out.Type {
	case types.BillingEventSubscriptionCreated, types.BillingEventSubscriptionUpdated, types.BillingEventSubscriptionDeleted:
		if err := parseSubscription(event.Data.Raw, out); err != nil {
			return nil, err
		}
	case types.BillingEventPaymentSucceeded, types.BillingEventPaymentFailed:
		if err := parseInvoice(event.Data.Raw, out); err != nil {
			return nil, err
		}
	default:
		var obj struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(event.Data.Raw, &obj)
		out.ObjectID = obj.ID
	}
	return out, nil
}

func normalizeType(t stripe.EventType) types.BillingEventType {
	switch t {
	case "customer.subscription.created":
		return types.BillingEventSubscriptionCreated
	case "customer.subscription.updated", "customer.subscription.paused", "customer.subscription.resumed":
		return types.BillingEventSubscriptionUpdated
	case "customer.subscription.deleted":
		return types.BillingEventSubscriptionDeleted
	case "invoice.payment_succeeded", "invoice.paid":
		return types.BillingEventPaymentSucceeded
	case "invoice.payment_failed":
		return types.BillingEventPaymentFailed
	default:
		return types.BillingEventIgnored
	}
}

func parseSubscription(raw json.RawMessage, out *webhookevent.ProviderEvent) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return ierr.WithError(err).
			WithHint("Malformed stripe subscription").
			Mark(ierr.ErrValidation)
	}

	out.ObjectID = sub.ID
	out.ExternalSubscriptionID = sub.ID
	if sub.Customer != nil {
		out.ExternalCustomerID = sub.Customer.ID
	}
	out.TenantHint = sub.Metadata[MetadataTenantID]
	out.SubscriptionStatus = subscriptionStatus(sub.Status)
	out.TrialStart = unixPtr(sub.TrialStart)
	out.TrialEnd = unixPtr(sub.TrialEnd)
	out.CanceledAt = unixPtr(sub.CanceledAt)

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		out.CurrentPeriodStart = unixPtr(item.CurrentPeriodStart)
		out.CurrentPeriodEnd = unixPtr(item.CurrentPeriodEnd)
		if item.Price != nil {
			out.ExternalPriceID = item.Price.ID
			out.PlanName = item.Price.LookupKey
			if item.Price.Recurring != nil && item.Price.Recurring.Interval == stripe.PriceRecurringIntervalYear {
				out.BillingPeriod = types.BillingPeriodAnnual
			} else {
				out.BillingPeriod = types.BillingPeriodMonthly
			}
		}
	}
	return nil
}

// invoiceObject reads the invoice fields we need. The subscription id moved
// under parent.subscription_details in newer API versions; both are read.
type invoiceObject struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	AmountDue    int64             `json:"amount_due"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription string            `json:"subscription"`
			Metadata     map[string]string `json:"metadata"`
		} `json:"subscription_details"`
	} `json:"parent"`
	LastFinalizationError *struct {
		Message string `json:"message"`
	} `json:"last_finalization_error"`
}

func parseInvoice(raw json.RawMessage, out *webhookevent.ProviderEvent) error {
	var inv invoiceObject
	if err := json.Unmarshal(raw, &inv); err != nil {
		return ierr.WithError(err).
			WithHint("Malformed stripe invoice").
			Mark(ierr.ErrValidation)
	}

	out.ObjectID = inv.ID
	out.ExternalCustomerID = inv.Customer
	out.ExternalSubscriptionID = inv.Subscription
	out.TenantHint = inv.Metadata[MetadataTenantID]
	if inv.Parent != nil && inv.Parent.SubscriptionDetails != nil {
		details := inv.Parent.SubscriptionDetails
		out.ExternalSubscriptionID = lo.Ternary(details.Subscription != "", details.Subscription, out.ExternalSubscriptionID)
		out.TenantHint = lo.Ternary(details.Metadata[MetadataTenantID] != "", details.Metadata[MetadataTenantID], out.TenantHint)
	}
	out.AmountDue = inv.AmountDue
	out.Currency = inv.Currency
	if inv.LastFinalizationError != nil {
		out.FailureMessage = inv.LastFinalizationError.Message
	}
	if out.Type == types.BillingEventPaymentFailed && out.FailureMessage == "" {
		out.FailureMessage = "payment failed"
	}
	return nil
}

func subscriptionStatus(s stripe.SubscriptionStatus) types.SubscriptionStatus {
	switch s {
	case stripe.SubscriptionStatusActive:
		return types.SubscriptionStatusActive
	case stripe.SubscriptionStatusTrialing:
		return types.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusPastDue:
		return types.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusUnpaid:
		return types.SubscriptionStatusUnpaid
	case stripe.SubscriptionStatusCanceled:
		return types.SubscriptionStatusCanceled
	case stripe.SubscriptionStatusPaused:
		return types.SubscriptionStatusPaused
	default:
		return types.SubscriptionStatusIncomplete
	}
}

func unixPtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
