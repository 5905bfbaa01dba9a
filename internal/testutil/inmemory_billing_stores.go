package testutil

import (
	"context"

	domainPlan "github.com/flexprice/tenantcore/internal/domain/plan"
	domainSubscription "github.com/flexprice/tenantcore/internal/domain/subscription"
	"github.com/flexprice/tenantcore/internal/domain/webhookevent"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*domainSubscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{InMemoryStore: NewInMemoryStore[*domainSubscription.Subscription]()}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *domainSubscription.Subscription) error {
	if _, err := s.GetByTenant(ctx, sub.TenantID); err == nil {
		return ierr.NewError("subscription already exists").Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, sub.ID, sub)
}

func (s *InMemorySubscriptionStore) GetByTenant(ctx context.Context, tenantID string) (*domainSubscription.Subscription, error) {
	return s.first(ctx, func(sub *domainSubscription.Subscription) bool { return sub.TenantID == tenantID })
}

func (s *InMemorySubscriptionStore) GetByExternalID(ctx context.Context, provider types.BillingProvider, externalSubscriptionID string) (*domainSubscription.Subscription, error) {
	return s.first(ctx, func(sub *domainSubscription.Subscription) bool {
		return sub.Provider == provider && lo.FromPtr(sub.ExternalSubscriptionID) == externalSubscriptionID
	})
}

func (s *InMemorySubscriptionStore) ListByExternalCustomerID(ctx context.Context, provider types.BillingProvider, externalCustomerID string) ([]*domainSubscription.Subscription, error) {
	return s.InMemoryStore.List(ctx, nil, func(_ context.Context, sub *domainSubscription.Subscription, _ interface{}) bool {
		return sub.Provider == provider && lo.FromPtr(sub.ExternalCustomerID) == externalCustomerID
	}, nil)
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *domainSubscription.Subscription) error {
	current, err := s.InMemoryStore.Get(ctx, sub.ID)
	if err != nil {
		return err
	}
	if current.TenantID != sub.TenantID {
		return ierr.NewError("subscription not found").Mark(ierr.ErrNotFound)
	}
	return s.InMemoryStore.Update(ctx, sub.ID, sub)
}

func (s *InMemorySubscriptionStore) DeleteByTenant(ctx context.Context, tenantID string) error {
	sub, err := s.GetByTenant(ctx, tenantID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}
	return s.InMemoryStore.Delete(ctx, sub.ID)
}

func (s *InMemorySubscriptionStore) first(ctx context.Context, match func(*domainSubscription.Subscription) bool) (*domainSubscription.Subscription, error) {
	items, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, sub *domainSubscription.Subscription, _ interface{}) bool {
		return match(sub)
	}, nil)
	if len(items) == 0 {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*domainPlan.Plan]
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{InMemoryStore: NewInMemoryStore[*domainPlan.Plan]()}
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *domainPlan.Plan) error {
	if _, err := s.GetByName(ctx, p.Name); err == nil {
		return ierr.NewError("plan already exists").Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, p.ID, p)
}

func (s *InMemoryPlanStore) GetByName(ctx context.Context, name string) (*domainPlan.Plan, error) {
	items, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, p *domainPlan.Plan, _ interface{}) bool {
		return p.Name == name
	}, nil)
	if len(items) == 0 {
		return nil, ierr.NewError("plan not found").
			WithHint("Plan not found").
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

func (s *InMemoryPlanStore) List(ctx context.Context) ([]*domainPlan.Plan, error) {
	return s.InMemoryStore.List(ctx, nil, nil, func(i, j *domainPlan.Plan) bool { return i.Tier < j.Tier })
}

func (s *InMemoryPlanStore) Update(ctx context.Context, p *domainPlan.Plan) error {
	return s.InMemoryStore.Update(ctx, p.ID, p)
}

// InMemoryWebhookEventStore implements webhookevent.Repository
type InMemoryWebhookEventStore struct {
	*InMemoryStore[*webhookevent.WebhookEvent]
}

func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{InMemoryStore: NewInMemoryStore[*webhookevent.WebhookEvent]()}
}

func (s *InMemoryWebhookEventStore) Create(ctx context.Context, e *webhookevent.WebhookEvent) error {
	if _, err := s.GetByExternalID(ctx, e.Provider, e.ExternalEventID); err == nil {
		return ierr.NewError("webhook event already exists").Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, e.ID, e)
}

func (s *InMemoryWebhookEventStore) GetByExternalID(ctx context.Context, provider types.BillingProvider, externalEventID string) (*webhookevent.WebhookEvent, error) {
	items, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, e *webhookevent.WebhookEvent, _ interface{}) bool {
		return e.Provider == provider && e.ExternalEventID == externalEventID
	}, nil)
	if len(items) == 0 {
		return nil, ierr.NewError("webhook event not found").Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

func (s *InMemoryWebhookEventStore) List(ctx context.Context, filter *types.WebhookEventFilter) ([]*webhookevent.WebhookEvent, error) {
	if filter == nil {
		filter = types.NewWebhookEventFilter()
	}
	return s.InMemoryStore.List(ctx, filter, webhookEventFilterFn, nil)
}

func (s *InMemoryWebhookEventStore) Count(ctx context.Context, filter *types.WebhookEventFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, webhookEventFilterFn)
}

func (s *InMemoryWebhookEventStore) Update(ctx context.Context, e *webhookevent.WebhookEvent) error {
	return s.InMemoryStore.Update(ctx, e.ID, e)
}

func (s *InMemoryWebhookEventStore) GetForUpdate(ctx context.Context, id string) (*webhookevent.WebhookEvent, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryWebhookEventStore) UpdateUnprocessed(ctx context.Context, e *webhookevent.WebhookEvent) (bool, error) {
	return s.InMemoryStore.UpdateIf(ctx, e.ID, e, func(stored *webhookevent.WebhookEvent) bool {
		return !stored.Processed
	})
}

func webhookEventFilterFn(_ context.Context, e *webhookevent.WebhookEvent, filter interface{}) bool {
	f, ok := filter.(*types.WebhookEventFilter)
	if !ok || f == nil {
		return true
	}
	if f.Provider != "" && string(e.Provider) != f.Provider {
		return false
	}
	if f.TenantID != "" && lo.FromPtr(e.TenantID) != f.TenantID {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.Processed != nil && e.Processed != *f.Processed {
		return false
	}
	return true
}
