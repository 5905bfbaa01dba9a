package stripe

import (
	"fmt"
	"testing"
	"time"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_secret"

func subscriptionEvent(eventType, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_sub_1",
		"object": "event",
		"type": %q,
		"created": 1767225600,
		"api_version": "2020-01-01",
		"data": {"object": {
			"id": "sub_123",
			"object": "subscription",
			"customer": "cus_456",
			"status": %q,
			"metadata": {"tenant_id": "ten_abc"},
			"trial_end": 1767830400,
			"items": {"object": "list", "data": [{
				"id": "si_1",
				"object": "subscription_item",
				"current_period_start": 1767225600,
				"current_period_end": 1769904000,
				"price": {"id": "price_pro", "object": "price", "lookup_key": "pro", "recurring": {"interval": "year"}}
			}]}
		}}
	}`, eventType, status))
}

func TestVerify(t *testing.T) {
	a := NewAdapter(testSecret)
	payload := subscriptionEvent("customer.subscription.updated", "active")

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testSecret,
	})
	require.NoError(t, a.Verify(payload, signed.Header))

	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  "whsec_attacker",
	})
	err := a.Verify(payload, forged.Header)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	stale := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now().Add(-time.Hour),
	})
	assert.Error(t, a.Verify(payload, stale.Header))

	assert.Error(t, NewAdapter("").Verify(payload, signed.Header))
}

func TestParseSubscription(t *testing.T) {
	a := NewAdapter(testSecret)

	ev, err := a.Parse(subscriptionEvent("customer.subscription.updated", "past_due"))
	require.NoError(t, err)
	assert.Equal(t, "evt_sub_1", ev.ExternalEventID)
	assert.Equal(t, types.BillingEventSubscriptionUpdated, ev.Type)
	assert.Equal(t, "sub_123", ev.ObjectID)
	assert.Equal(t, "sub_123", ev.ExternalSubscriptionID)
	assert.Equal(t, "cus_456", ev.ExternalCustomerID)
	assert.Equal(t, "ten_abc", ev.TenantHint)
	assert.Equal(t, types.SubscriptionStatusPastDue, ev.SubscriptionStatus)
	assert.Equal(t, "pro", ev.PlanName)
	assert.Equal(t, types.BillingPeriodAnnual, ev.BillingPeriod)
	require.NotNil(t, ev.CurrentPeriodEnd)
	assert.Equal(t, int64(1769904000), ev.CurrentPeriodEnd.Unix())
	require.NotNil(t, ev.TrialEnd)
	assert.Nil(t, ev.CanceledAt)

	ev, err = a.Parse(subscriptionEvent("customer.subscription.deleted", "canceled"))
	require.NoError(t, err)
	assert.Equal(t, types.BillingEventSubscriptionDeleted, ev.Type)
	assert.Equal(t, types.SubscriptionStatusCanceled, ev.SubscriptionStatus)
}

func TestParseInvoice(t *testing.T) {
	a := NewAdapter(testSecret)

	tests := []struct {
		name    string
		payload string
		want    types.BillingEventType
		subID   string
	}{
		{
			name: "legacy subscription field",
			payload: `{"id":"evt_inv_1","type":"invoice.payment_failed","created":1767225600,"data":{"object":{
				"id":"in_1","object":"invoice","customer":"cus_456","subscription":"sub_123","amount_due":4900,"currency":"usd"}}}`,
			want:  types.BillingEventPaymentFailed,
			subID: "sub_123",
		},
		{
			name: "parent subscription details",
			payload: `{"id":"evt_inv_2","type":"invoice.paid","created":1767225600,"data":{"object":{
				"id":"in_2","object":"invoice","customer":"cus_456","amount_due":4900,"currency":"usd",
				"parent":{"subscription_details":{"subscription":"sub_789","metadata":{"tenant_id":"ten_xyz"}}}}}}`,
			want:  types.BillingEventPaymentSucceeded,
			subID: "sub_789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := a.Parse([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.Type)
			assert.Equal(t, tt.subID, ev.ExternalSubscriptionID)
			assert.Equal(t, "cus_456", ev.ExternalCustomerID)
			assert.Equal(t, int64(4900), ev.AmountDue)
		})
	}

	ev, err := a.Parse([]byte(tests[0].payload))
	require.NoError(t, err)
	assert.Equal(t, "payment failed", ev.FailureMessage)
}

func TestParseIgnoredAndMalformed(t *testing.T) {
	a := NewAdapter(testSecret)

	ev, err := a.Parse([]byte(`{"id":"evt_x","type":"charge.refunded","created":1767225600,"data":{"object":{"id":"ch_1","object":"charge"}}}`))
	require.NoError(t, err)
	assert.Equal(t, types.BillingEventIgnored, ev.Type)
	assert.Equal(t, "ch_1", ev.ObjectID)

	_, err = a.Parse([]byte(`{"type":"invoice.paid"}`))
	assert.True(t, ierr.IsValidation(err))

	_, err = a.Parse([]byte(`{{`))
	assert.True(t, ierr.IsValidation(err))
}
