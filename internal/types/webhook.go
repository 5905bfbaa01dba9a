package types

// BillingEventType is the provider independent event kind a billing
// webhook is normalized to before dispatch.
type BillingEventType string

const (
	BillingEventSubscriptionCreated BillingEventType = "subscription.created"
	BillingEventSubscriptionUpdated BillingEventType = "subscription.updated"
	BillingEventSubscriptionDeleted BillingEventType = "subscription.deleted"
	BillingEventPaymentSucceeded    BillingEventType = "payment.succeeded"
	BillingEventPaymentFailed       BillingEventType = "payment.failed"
	BillingEventIgnored             BillingEventType = "ignored"
)

// ResolutionStrategy records which identifier matched the event to a tenant
type ResolutionStrategy string

const (
	ResolvedBySubscriptionID ResolutionStrategy = "subscription_id"
	ResolvedByCustomerID     ResolutionStrategy = "customer_id"
	ResolvedByObjectID       ResolutionStrategy = "object_id"
)

type WebhookEventFilter struct {
	*QueryFilter
	*TimeRangeFilter
	Provider  string `json:"provider,omitempty" form:"provider"`
	TenantID  string `json:"tenant_id,omitempty" form:"tenant_id"`
	EventType string `json:"event_type,omitempty" form:"event_type"`
	Processed *bool  `json:"processed,omitempty" form:"processed"`
}

func NewWebhookEventFilter() *WebhookEventFilter {
	return &WebhookEventFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *WebhookEventFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	return f.TimeRangeFilter.Validate()
}
