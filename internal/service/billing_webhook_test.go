package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/flexprice/tenantcore/internal/domain/subscription"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/domain/webhookevent"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/integration/generic"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type BillingWebhookServiceSuite struct {
	testutil.BaseServiceTestSuite
	service BillingWebhookService
	params  ServiceParams
}

func TestBillingWebhookService(t *testing.T) {
	suite.Run(t, new(BillingWebhookServiceSuite))
}

func (s *BillingWebhookServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewBillingWebhookService(s.params)
	seedPlans(s.GetContext(), &s.BaseServiceTestSuite)
}

// activeTenant seeds an active tenant with a subscription known to the
// provider as externalSubID
func (s *BillingWebhookServiceSuite) activeTenant(externalSubID string) (*domainTenant.Tenant, *subscription.Subscription) {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")

	now := time.Now().UTC()
	sub := &subscription.Subscription{
		ID:                     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		TenantID:               t.ID,
		PlanName:               "starter",
		Provider:               types.BillingProviderInternal,
		ExternalSubscriptionID: lo.ToPtr(externalSubID),
		Status:                 types.SubscriptionStatusActive,
		BillingPeriod:          types.BillingPeriodMonthly,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(ctx, sub))
	return t, sub
}

func (s *BillingWebhookServiceSuite) payload(id string, eventType types.BillingEventType, at time.Time, data generic.Data) []byte {
	body, err := json.Marshal(generic.Payload{ID: id, Type: string(eventType), CreatedAt: at, Data: data})
	s.Require().NoError(err)
	return body
}

func (s *BillingWebhookServiceSuite) deliver(body []byte) *webhookevent.WebhookEvent {
	row, err := s.service.HandleWebhook(s.GetContext(), types.BillingProviderInternal, body, generic.Sign(testWebhookSecret, body))
	s.Require().NoError(err)
	s.Require().NotNil(row)
	return row
}

func (s *BillingWebhookServiceSuite) tenant(id string) *domainTenant.Tenant {
	t, err := s.GetStores().TenantRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return t
}

func (s *BillingWebhookServiceSuite) TestPaymentFailedSuspends() {
	t, _ := s.activeTenant("sub_ext_1")
	body := s.payload("evt_1", types.BillingEventPaymentFailed, time.Now().UTC(), generic.Data{
		ObjectID:       "in_1",
		SubscriptionID: "sub_ext_1",
		FailureMessage: "card declined",
		AmountDue:      2900,
		Currency:       "usd",
	})

	row := s.deliver(body)
	s.True(row.Processed)
	s.True(row.SignatureValid)
	s.Equal(types.ResolvedBySubscriptionID, row.ResolvedVia)
	s.Equal(t.ID, lo.FromPtr(row.TenantID))

	stored := s.tenant(t.ID)
	s.Equal(types.TenantStatusSuspended, stored.Status)
	s.Equal("card declined", stored.SuspensionReason)
	s.Require().NotNil(stored.GracePeriodEndsAt)
	s.WithinDuration(time.Now().UTC().Add(30*24*time.Hour), *stored.GracePeriodEndsAt, time.Minute)

	sub, err := s.GetStores().SubscriptionRepo.GetByTenant(s.GetContext(), t.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, sub.Status)

	alerts := s.GetPublisher().Alerts()
	s.Require().Len(alerts, 1)
	s.Equal(types.AlertTypePaymentFailure, alerts[0].AlertType)
	s.Equal(row.ID, alerts[0].EntityID)

	s.Run("redelivery is a no-op", func() {
		again := s.deliver(body)
		s.Equal(row.ID, again.ID)
		s.Len(s.GetPublisher().Alerts(), 1)

		count, err := s.GetStores().LifecycleEventRepo.CountByTenant(s.GetContext(), t.ID)
		s.Require().NoError(err)
		s.Equal(1, count)
	})
}

func (s *BillingWebhookServiceSuite) TestPaymentSucceededResumes() {
	ctx := s.GetContext()
	t, _ := s.activeTenant("sub_ext_1")

	s.deliver(s.payload("evt_fail", types.BillingEventPaymentFailed, time.Now().UTC().Add(-time.Minute), generic.Data{
		SubscriptionID: "sub_ext_1",
	}))
	s.Equal(types.TenantStatusSuspended, s.tenant(t.ID).Status)

	row := s.deliver(s.payload("evt_paid", types.BillingEventPaymentSucceeded, time.Now().UTC(), generic.Data{
		SubscriptionID: "sub_ext_1",
	}))
	s.True(row.Processed)
	s.Equal(types.TenantStatusActive, s.tenant(t.ID).Status)

	sub, err := s.GetStores().SubscriptionRepo.GetByTenant(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
}

func (s *BillingWebhookServiceSuite) TestPaymentSucceededWhileProvisioning() {
	ctx := s.GetContext()

	s.Run("steps pending defers to the provisioning run", func() {
		t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusProvisioning, "starter")
		run, err := s.GetStores().ProvisioningRepo.GetOrCreate(ctx, t.ID)
		s.Require().NoError(err)
		run.MarkCompleted(types.ProvisioningSteps[0])
		s.Require().NoError(s.GetStores().ProvisioningRepo.Update(ctx, run))

		row := s.deliver(s.payload("evt_paid_early", types.BillingEventPaymentSucceeded, time.Now().UTC(), generic.Data{
			TenantID: t.ID,
		}))
		s.True(row.Processed)
		s.Equal(types.ResolvedByObjectID, row.ResolvedVia)
		s.Equal(types.TenantStatusProvisioning, s.tenant(t.ID).Status)
	})

	s.Run("all steps done activates", func() {
		t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusProvisioning, "starter")
		run, err := s.GetStores().ProvisioningRepo.GetOrCreate(ctx, t.ID)
		s.Require().NoError(err)
		for _, step := range types.ProvisioningSteps {
			run.MarkCompleted(step)
		}
		s.Require().NoError(s.GetStores().ProvisioningRepo.Update(ctx, run))

		row := s.deliver(s.payload("evt_paid_done", types.BillingEventPaymentSucceeded, time.Now().UTC(), generic.Data{
			TenantID: t.ID,
		}))
		s.True(row.Processed)

		stored := s.tenant(t.ID)
		s.Equal(types.TenantStatusActive, stored.Status)
		s.NotNil(stored.ActivatedAt)
	})
}

func (s *BillingWebhookServiceSuite) TestStaleSubscriptionSnapshotSkipped() {
	ctx := s.GetContext()
	t, sub := s.activeTenant("sub_ext_1")
	sub.LastEventAt = lo.ToPtr(time.Now().UTC())
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(ctx, sub))

	row := s.deliver(s.payload("evt_old", types.BillingEventSubscriptionUpdated, time.Now().UTC().Add(-time.Hour), generic.Data{
		SubscriptionID: "sub_ext_1",
		Plan:           "growth",
	}))
	s.True(row.Processed)

	stored, err := s.GetStores().SubscriptionRepo.GetByTenant(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal("starter", stored.PlanName)
	s.Equal("starter", s.tenant(t.ID).PlanName)
}

func (s *BillingWebhookServiceSuite) TestPaymentFailedOlderThanSnapshotSuspends() {
	ctx := s.GetContext()
	t, _ := s.activeTenant("sub_ext_1")
	at := time.Now().UTC()

	s.deliver(s.payload("evt_upd", types.BillingEventSubscriptionUpdated, at, generic.Data{
		SubscriptionID: "sub_ext_1",
		Status:         types.SubscriptionStatusActive,
	}))
	row := s.deliver(s.payload("evt_fail", types.BillingEventPaymentFailed, at.Add(-time.Second), generic.Data{
		SubscriptionID: "sub_ext_1",
		FailureMessage: "card declined",
	}))
	s.True(row.Processed)
	s.Empty(row.Error)

	s.Equal(types.TenantStatusSuspended, s.tenant(t.ID).Status)
	s.Len(s.GetPublisher().Alerts(), 1)

	sub, err := s.GetStores().SubscriptionRepo.GetByTenant(ctx, t.ID)
	s.Require().NoError(err)
	// the newer snapshot keeps its status and event clock
	s.Equal(types.SubscriptionStatusActive, sub.Status)
	s.True(at.Equal(lo.FromPtr(sub.LastEventAt)))
}

func (s *BillingWebhookServiceSuite) TestOverlappingDeliveryAppliesOnce() {
	ctx := s.GetContext()
	t, _ := s.activeTenant("sub_ext_1")
	body := s.payload("evt_1", types.BillingEventPaymentFailed, time.Now().UTC(), generic.Data{
		SubscriptionID: "sub_ext_1",
	})

	adapter, err := s.params.WebhookAdapters.Get(types.BillingProviderInternal)
	s.Require().NoError(err)
	event, err := adapter.Parse(body)
	s.Require().NoError(err)

	first := s.deliver(body)
	s.Require().True(first.Processed)

	// a second delivery that read the row before the first one committed
	svc := s.service.(*billingWebhookService)
	late := *first
	late.Processed = false
	late.ProcessedAt = nil
	s.Require().NoError(svc.process(ctx, &late, event))
	s.True(late.Processed)
	s.Empty(late.Error)

	stored, err := s.GetStores().WebhookEventRepo.Get(ctx, first.ID)
	s.Require().NoError(err)
	s.True(stored.Processed)
	s.Empty(stored.Error)

	s.Equal(types.TenantStatusSuspended, s.tenant(t.ID).Status)
	s.Len(s.GetPublisher().Alerts(), 1)
	count, err := s.GetStores().LifecycleEventRepo.CountByTenant(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(1, count)

	s.Run("a late failure does not overwrite the processed row", func() {
		loser := *first
		loser.Processed = false
		loser.ProcessedAt = nil
		err := svc.recordFailure(ctx, &loser, ierr.NewError("invalid transition").Mark(ierr.ErrInvalidOperation), webhookOutcomeFailed)
		s.NoError(err)
		s.True(loser.Processed)

		stored, err := s.GetStores().WebhookEventRepo.Get(ctx, first.ID)
		s.Require().NoError(err)
		s.True(stored.Processed)
		s.Empty(stored.Error)
	})
}

func (s *BillingWebhookServiceSuite) TestInvalidSignatureRecorded() {
	t, _ := s.activeTenant("sub_ext_1")
	body := s.payload("evt_forged", types.BillingEventPaymentFailed, time.Now().UTC(), generic.Data{
		SubscriptionID: "sub_ext_1",
	})

	row, err := s.service.HandleWebhook(s.GetContext(), types.BillingProviderInternal, body, generic.Sign("wrong", body))
	s.Require().NoError(err)
	s.False(row.SignatureValid)
	s.False(row.Processed)
	s.NotEmpty(row.Error)
	s.Equal(types.TenantStatusActive, s.tenant(t.ID).Status)

	_, err = s.service.Reprocess(s.GetContext(), row.ID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))

	s.Run("a correctly signed redelivery is processed", func() {
		again := s.deliver(body)
		s.Equal(row.ID, again.ID)
		s.True(again.Processed)
		s.Equal(types.TenantStatusSuspended, s.tenant(t.ID).Status)
	})
}

func (s *BillingWebhookServiceSuite) TestMalformedPayloadRecorded() {
	body := []byte(`{"type": "payment.failed"`)

	row := s.deliver(body)
	s.Equal(row.ID, row.ExternalEventID)
	s.False(row.Processed)
	s.NotEmpty(row.Error)

	stored, err := s.GetStores().WebhookEventRepo.Get(s.GetContext(), row.ID)
	s.Require().NoError(err)
	s.Equal(string(body), string(stored.Payload))
}

func (s *BillingWebhookServiceSuite) TestUnknownProvider() {
	_, err := s.service.HandleWebhook(s.GetContext(), "paddle", []byte(`{}`), "")
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *BillingWebhookServiceSuite) TestResolutionConflict() {
	ctx := s.GetContext()
	owner, _ := s.activeTenant("sub_ext_1")
	other := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")
	other.BillingCustomerID = lo.ToPtr("cus_other")
	s.Require().NoError(s.GetStores().TenantRepo.Update(ctx, other))

	row := s.deliver(s.payload("evt_conflict", types.BillingEventPaymentFailed, time.Now().UTC(), generic.Data{
		SubscriptionID: "sub_ext_1",
		CustomerID:     "cus_other",
	}))
	s.False(row.Processed)
	s.Contains(row.ResolutionConflict, "subscription_id="+owner.ID)
	s.Contains(row.ResolutionConflict, "customer_id="+other.ID)
	s.Nil(row.TenantID)

	s.Equal(types.TenantStatusActive, s.tenant(owner.ID).Status)
	s.Equal(types.TenantStatusActive, s.tenant(other.ID).Status)
	s.Empty(s.GetPublisher().Alerts())
}

func (s *BillingWebhookServiceSuite) TestUnresolvedThenReprocessed() {
	ctx := s.GetContext()

	row := s.deliver(s.payload("evt_early", types.BillingEventPaymentFailed, time.Now().UTC(), generic.Data{
		SubscriptionID: "sub_ext_late",
	}))
	s.False(row.Processed)
	s.NotEmpty(row.Error)

	t, _ := s.activeTenant("sub_ext_late")

	resp, err := s.service.Reprocess(ctx, row.ID)
	s.Require().NoError(err)
	s.True(resp.Processed)
	s.Empty(resp.Error)
	s.Equal(2, resp.Attempts)
	s.Equal(types.TenantStatusSuspended, s.tenant(t.ID).Status)

	_, err = s.service.Reprocess(ctx, row.ID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *BillingWebhookServiceSuite) TestSubscriptionUpdatedChangesPlan() {
	ctx := s.GetContext()
	t, _ := s.activeTenant("sub_ext_1")
	periodEnd := time.Now().UTC().AddDate(0, 1, 0).Truncate(time.Second)

	row := s.deliver(s.payload("evt_upd", types.BillingEventSubscriptionUpdated, time.Now().UTC(), generic.Data{
		ObjectID:         "sub_ext_1",
		SubscriptionID:   "sub_ext_1",
		Status:           types.SubscriptionStatusActive,
		Plan:             "growth",
		BillingPeriod:    types.BillingPeriodAnnual,
		CurrentPeriodEnd: &periodEnd,
	}))
	s.True(row.Processed)

	sub, err := s.GetStores().SubscriptionRepo.GetByTenant(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal("growth", sub.PlanName)
	s.Equal(types.BillingPeriodAnnual, sub.BillingPeriod)
	s.True(periodEnd.Equal(lo.FromPtr(sub.CurrentPeriodEnd)))
	s.NotNil(sub.LastEventAt)

	stored := s.tenant(t.ID)
	s.Equal("growth", stored.PlanName)
	s.Equal(100, stored.MaxEmployees)
}

func (s *BillingWebhookServiceSuite) TestSubscriptionCreatedForCustomer() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")
	t.BillingCustomerID = lo.ToPtr("cus_1")
	s.Require().NoError(s.GetStores().TenantRepo.Update(ctx, t))

	row := s.deliver(s.payload("evt_new", types.BillingEventSubscriptionCreated, time.Now().UTC(), generic.Data{
		SubscriptionID: "sub_ext_new",
		CustomerID:     "cus_1",
		Status:         types.SubscriptionStatusTrialing,
		Plan:           "starter",
	}))
	s.True(row.Processed)
	s.Equal(types.ResolvedByCustomerID, row.ResolvedVia)

	sub, err := s.GetStores().SubscriptionRepo.GetByExternalID(ctx, types.BillingProviderInternal, "sub_ext_new")
	s.Require().NoError(err)
	s.Equal(t.ID, sub.TenantID)
	s.Equal(types.SubscriptionStatusTrialing, sub.Status)
}

func (s *BillingWebhookServiceSuite) TestSubscriptionDeletedCancels() {
	ctx := s.GetContext()
	t, _ := s.activeTenant("sub_ext_1")

	row := s.deliver(s.payload("evt_del", types.BillingEventSubscriptionDeleted, time.Now().UTC(), generic.Data{
		SubscriptionID: "sub_ext_1",
	}))
	s.True(row.Processed)

	stored := s.tenant(t.ID)
	s.Equal(types.TenantStatusCancelled, stored.Status)
	s.NotNil(stored.ScheduledDeletionAt)

	sub, err := s.GetStores().SubscriptionRepo.GetByTenant(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, sub.Status)
	s.NotNil(sub.CanceledAt)
}

func (s *BillingWebhookServiceSuite) TestIgnoredEventType() {
	row := s.deliver(s.payload("evt_misc", "customer.updated", time.Now().UTC(), generic.Data{}))
	s.True(row.Processed)
	s.Equal(types.BillingEventIgnored, row.NormalizedType)
}

func (s *BillingWebhookServiceSuite) TestListWebhookEvents() {
	s.activeTenant("sub_ext_1")
	s.deliver(s.payload("evt_a", types.BillingEventPaymentSucceeded, time.Now().UTC(), generic.Data{SubscriptionID: "sub_ext_1"}))
	s.deliver([]byte(`not json`))

	filter := types.NewWebhookEventFilter()
	filter.Processed = lo.ToPtr(false)
	resp, err := s.service.ListWebhookEvents(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Equal(1, resp.Pagination.Total)

	all, err := s.service.ListWebhookEvents(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Equal(2, all.Pagination.Total)
}
