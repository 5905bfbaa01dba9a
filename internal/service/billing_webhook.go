package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	"github.com/flexprice/tenantcore/internal/domain/plan"
	"github.com/flexprice/tenantcore/internal/domain/subscription"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/domain/webhookevent"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/integration"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

// webhook processing outcomes, used as the metrics label
const (
	webhookOutcomeProcessed        = "processed"
	webhookOutcomeDuplicate        = "duplicate"
	webhookOutcomeInvalidSignature = "invalid_signature"
	webhookOutcomeMalformed        = "malformed"
	webhookOutcomeUnresolved       = "unresolved"
	webhookOutcomeConflict         = "conflict"
	webhookOutcomeStale            = "stale"
	webhookOutcomeIgnored          = "ignored"
	webhookOutcomeFailed           = "failed"
)

// BillingWebhookService ingests billing provider notifications and drives
// the tenant lifecycle from them
type BillingWebhookService interface {
	// HandleWebhook records the delivery and processes it. Processing
	// failures are stored on the returned event, not returned as errors.
	HandleWebhook(ctx context.Context, provider types.BillingProvider, payload []byte, signature string) (*webhookevent.WebhookEvent, error)
	// Reprocess replays a stored event that has not been processed yet
	Reprocess(ctx context.Context, id string) (*dto.WebhookEventResponse, error)
	GetWebhookEvent(ctx context.Context, id string) (*dto.WebhookEventResponse, error)
	ListWebhookEvents(ctx context.Context, filter *types.WebhookEventFilter) (*dto.ListWebhookEventsResponse, error)
}

type billingWebhookService struct {
	ServiceParams
	lifecycle LifecycleService
	alerts    AlertService
}

func NewBillingWebhookService(params ServiceParams) BillingWebhookService {
	return &billingWebhookService{
		ServiceParams: params,
		lifecycle:     NewLifecycleService(params),
		alerts:        NewAlertService(params),
	}
}

func (s *billingWebhookService) adapter(provider types.BillingProvider) (integration.WebhookAdapter, error) {
	if s.WebhookAdapters == nil {
		return nil, ierr.NewError("no webhook adapters configured").
			Mark(ierr.ErrSystem)
	}
	return s.WebhookAdapters.Get(provider)
}

func (s *billingWebhookService) HandleWebhook(ctx context.Context, provider types.BillingProvider, payload []byte, signature string) (*webhookevent.WebhookEvent, error) {
	adapter, err := s.adapter(provider)
	if err != nil {
		return nil, err
	}
	log := s.Logger.WithContext(ctx)

	signatureErr := adapter.Verify(payload, signature)
	event, parseErr := adapter.Parse(payload)

	now := time.Now().UTC()
	row := &webhookevent.WebhookEvent{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		Provider:       provider,
		Payload:        append([]byte(nil), payload...),
		Signature:      signature,
		SignatureValid: signatureErr == nil,
		ReceivedAt:     now,
		UpdatedAt:      now,
	}

	if parseErr != nil {
		// unparseable deliveries are kept under their own id for inspection
		row.ExternalEventID = row.ID
		row.Error = parseErr.Error()
		if err := s.WebhookEventRepo.Create(ctx, row); err != nil {
			return nil, err
		}
		s.Metrics.WebhookEvent(provider, webhookOutcomeMalformed)
		log.Warnw("malformed webhook payload recorded", "provider", provider, "webhook_event_id", row.ID, "error", parseErr)
		return row, nil
	}

	row.ExternalEventID = event.ExternalEventID
	row.EventType = event.RawType
	row.NormalizedType = event.Type

	// redelivery of a known event never applies effects twice
	existing, err := s.WebhookEventRepo.GetByExternalID(ctx, provider, event.ExternalEventID)
	switch {
	case err == nil:
		return s.handleRedelivery(ctx, existing, event, signatureErr == nil)
	case !ierr.IsNotFound(err):
		return nil, err
	}

	if err := s.WebhookEventRepo.Create(ctx, row); err != nil {
		if ierr.IsAlreadyExists(err) {
			existing, getErr := s.WebhookEventRepo.GetByExternalID(ctx, provider, event.ExternalEventID)
			if getErr != nil {
				return nil, getErr
			}
			return s.handleRedelivery(ctx, existing, event, signatureErr == nil)
		}
		return nil, err
	}

	if signatureErr != nil {
		row.MarkFailed(signatureErr)
		row.UpdatedAt = time.Now().UTC()
		if err := s.WebhookEventRepo.Update(ctx, row); err != nil {
			return nil, err
		}
		s.Metrics.WebhookEvent(provider, webhookOutcomeInvalidSignature)
		log.Warnw("webhook signature verification failed",
			"provider", provider,
			"webhook_event_id", row.ID,
			"external_event_id", row.ExternalEventID,
		)
		return row, nil
	}

	if err := s.process(ctx, row, event); err != nil {
		log.Errorw("webhook processing failed",
			"provider", provider,
			"webhook_event_id", row.ID,
			"event_type", row.EventType,
			"error", err,
		)
	}
	return row, nil
}

// handleRedelivery is a no-op for processed events. An unprocessed one is
// retried, since the provider redelivers when it was not acknowledged.
func (s *billingWebhookService) handleRedelivery(ctx context.Context, existing *webhookevent.WebhookEvent, event *webhookevent.ProviderEvent, signatureValid bool) (*webhookevent.WebhookEvent, error) {
	s.Metrics.WebhookEvent(existing.Provider, webhookOutcomeDuplicate)
	s.Logger.WithContext(ctx).Infow("duplicate webhook delivery",
		"webhook_event_id", existing.ID,
		"external_event_id", existing.ExternalEventID,
		"processed", existing.Processed,
	)
	if existing.Processed || !signatureValid {
		return existing, nil
	}

	if !existing.SignatureValid {
		// the stored copy failed verification; this delivery did not
		existing.SignatureValid = true
	}
	if err := s.process(ctx, existing, event); err != nil {
		s.Logger.WithContext(ctx).Errorw("webhook redelivery processing failed",
			"webhook_event_id", existing.ID,
			"error", err,
		)
	}
	return existing, nil
}

func (s *billingWebhookService) Reprocess(ctx context.Context, id string) (*dto.WebhookEventResponse, error) {
	row, err := s.WebhookEventRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.Processed {
		return nil, ierr.NewError("webhook event already processed").
			WithHint("The event has already been processed").
			WithReportableDetails(map[string]any{"webhook_event_id": id}).
			Mark(ierr.ErrInvalidOperation)
	}
	if !row.SignatureValid {
		return nil, ierr.NewError("webhook signature invalid").
			WithHint("Events that failed signature verification cannot be replayed").
			WithReportableDetails(map[string]any{"webhook_event_id": id}).
			Mark(ierr.ErrInvalidOperation)
	}

	adapter, err := s.adapter(row.Provider)
	if err != nil {
		return nil, err
	}
	event, err := adapter.Parse(row.Payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Stored payload could not be parsed").
			Mark(ierr.ErrInvalidOperation)
	}

	// a conflict is resolved by fixing the data, so try again from scratch
	row.ResolutionConflict = ""
	if err := s.process(ctx, row, event); err != nil {
		return &dto.WebhookEventResponse{WebhookEvent: row}, err
	}
	return &dto.WebhookEventResponse{WebhookEvent: row}, nil
}

func (s *billingWebhookService) GetWebhookEvent(ctx context.Context, id string) (*dto.WebhookEventResponse, error) {
	row, err := s.WebhookEventRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.WebhookEventResponse{WebhookEvent: row}, nil
}

func (s *billingWebhookService) ListWebhookEvents(ctx context.Context, filter *types.WebhookEventFilter) (*dto.ListWebhookEventsResponse, error) {
	if filter == nil {
		filter = types.NewWebhookEventFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	rows, err := s.WebhookEventRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.WebhookEventRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(rows, func(e *webhookevent.WebhookEvent, _ int) *dto.WebhookEventResponse {
		return &dto.WebhookEventResponse{WebhookEvent: e}
	})
	return types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset()), nil
}

// process resolves and dispatches one event and records the outcome on row.
// Effects and the processed flag commit together.
func (s *billingWebhookService) process(ctx context.Context, row *webhookevent.WebhookEvent, event *webhookevent.ProviderEvent) error {
	row.Attempts++
	row.UpdatedAt = time.Now().UTC()

	if event.Type == types.BillingEventIgnored {
		row.MarkProcessed(time.Now().UTC())
		s.Metrics.WebhookEvent(row.Provider, webhookOutcomeIgnored)
		return s.WebhookEventRepo.Update(ctx, row)
	}

	res, err := s.resolve(ctx, row.Provider, event)
	if err != nil {
		return s.recordFailure(ctx, row, err, webhookOutcomeFailed)
	}
	if res.conflict != "" {
		row.ResolutionConflict = res.conflict
		return s.recordFailure(ctx, row, ierr.NewError("conflicting tenant resolution").
			WithHint("The event identifiers point at different tenants").
			WithReportableDetails(map[string]any{"conflict": res.conflict}).
			Mark(ierr.ErrWebhookProcessing), webhookOutcomeConflict)
	}
	if res.tenantID == "" {
		return s.recordFailure(ctx, row, ierr.NewError("tenant not resolved").
			WithHint("No tenant matches the event identifiers").
			WithReportableDetails(map[string]any{
				"external_subscription_id": event.ExternalSubscriptionID,
				"external_customer_id":     event.ExternalCustomerID,
				"object_id":                event.ObjectID,
			}).
			Mark(ierr.ErrWebhookProcessing), webhookOutcomeUnresolved)
	}

	row.TenantID = lo.ToPtr(res.tenantID)
	row.ResolvedVia = res.via
	if res.subscription != nil {
		row.SubscriptionID = lo.ToPtr(res.subscription.ID)
	}

	outcome := webhookOutcomeProcessed
	var claimedBy *webhookevent.WebhookEvent
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		// overlapping deliveries of one event queue on the row lock; the
		// later one finds it processed and applies nothing
		claimed, err := s.WebhookEventRepo.GetForUpdate(ctx, row.ID)
		if err != nil {
			return err
		}
		if claimed.Processed {
			claimedBy = claimed
			return nil
		}

		applied, err := s.dispatch(ctx, row, event, res)
		if err != nil {
			return err
		}
		if !applied {
			outcome = webhookOutcomeStale
		}
		row.MarkProcessed(time.Now().UTC())
		row.UpdatedAt = time.Now().UTC()
		return s.WebhookEventRepo.Update(ctx, row)
	})
	if err != nil {
		row.Processed = false
		row.ProcessedAt = nil
		return s.recordFailure(ctx, row, err, webhookOutcomeFailed)
	}
	if claimedBy != nil {
		*row = *claimedBy
		s.Metrics.WebhookEvent(row.Provider, webhookOutcomeDuplicate)
		s.Logger.WithContext(ctx).Infow("webhook event processed by a concurrent delivery",
			"webhook_event_id", row.ID,
			"external_event_id", row.ExternalEventID,
		)
		return nil
	}

	s.Metrics.WebhookEvent(row.Provider, outcome)
	s.Logger.WithContext(ctx).Infow("webhook event processed",
		"webhook_event_id", row.ID,
		"tenant_id", res.tenantID,
		"event_type", event.Type,
		"resolved_via", res.via,
		"outcome", outcome,
	)
	return nil
}

func (s *billingWebhookService) recordFailure(ctx context.Context, row *webhookevent.WebhookEvent, cause error, outcome string) error {
	row.MarkFailed(cause)
	row.UpdatedAt = time.Now().UTC()
	recorded, err := s.WebhookEventRepo.UpdateUnprocessed(ctx, row)
	switch {
	case err != nil:
		s.Logger.WithContext(ctx).Errorw("failed to record webhook failure",
			"webhook_event_id", row.ID,
			"error", err,
		)
	case !recorded:
		// a concurrent delivery processed the event; its outcome stands
		if stored, getErr := s.WebhookEventRepo.Get(ctx, row.ID); getErr == nil {
			*row = *stored
		}
		s.Metrics.WebhookEvent(row.Provider, webhookOutcomeDuplicate)
		s.Logger.WithContext(ctx).Infow("dropping failure of an event already processed",
			"webhook_event_id", row.ID,
			"cause", cause,
		)
		return nil
	}
	s.Metrics.WebhookEvent(row.Provider, outcome)
	return ierr.WithError(cause).
		WithHint("Webhook event could not be processed").
		WithReportableDetails(map[string]any{"webhook_event_id": row.ID}).
		Mark(ierr.ErrWebhookProcessing)
}

type webhookResolution struct {
	tenantID     string
	via          types.ResolutionStrategy
	subscription *subscription.Subscription
	conflict     string
}

// resolve tries every identifier strategy. The first match wins; matches
// naming different tenants are reported as a conflict instead.
func (s *billingWebhookService) resolve(ctx context.Context, provider types.BillingProvider, event *webhookevent.ProviderEvent) (*webhookResolution, error) {
	type match struct {
		via      types.ResolutionStrategy
		tenantID string
	}
	var matches []match
	res := &webhookResolution{}

	if event.ExternalSubscriptionID != "" {
		sub, err := s.SubscriptionRepo.GetByExternalID(ctx, provider, event.ExternalSubscriptionID)
		if err != nil && !ierr.IsNotFound(err) {
			return nil, err
		}
		if sub != nil && err == nil {
			res.subscription = sub
			matches = append(matches, match{types.ResolvedBySubscriptionID, sub.TenantID})
		}
	}

	if event.ExternalCustomerID != "" {
		tenantIDs, err := s.tenantsByCustomer(ctx, provider, event.ExternalCustomerID)
		if err != nil {
			return nil, err
		}
		for _, id := range tenantIDs {
			matches = append(matches, match{types.ResolvedByCustomerID, id})
		}
	}

	if tenantID, err := s.tenantByObject(ctx, provider, event); err != nil {
		return nil, err
	} else if tenantID != "" {
		matches = append(matches, match{types.ResolvedByObjectID, tenantID})
	}

	if len(matches) == 0 {
		return res, nil
	}

	distinct := lo.Uniq(lo.Map(matches, func(m match, _ int) string { return m.tenantID }))
	if len(distinct) > 1 {
		parts := lo.Map(matches, func(m match, _ int) string {
			return fmt.Sprintf("%s=%s", m.via, m.tenantID)
		})
		sort.Strings(parts)
		res.conflict = strings.Join(parts, " ")
		return res, nil
	}

	res.tenantID = matches[0].tenantID
	res.via = matches[0].via
	if res.subscription == nil {
		sub, err := s.SubscriptionRepo.GetByTenant(ctx, res.tenantID)
		if err != nil && !ierr.IsNotFound(err) {
			return nil, err
		}
		if err == nil {
			res.subscription = sub
		}
	}
	return res, nil
}

func (s *billingWebhookService) tenantsByCustomer(ctx context.Context, provider types.BillingProvider, customerID string) ([]string, error) {
	t, err := s.TenantRepo.GetByBillingCustomerID(ctx, provider, customerID)
	if err == nil {
		return []string{t.ID}, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	subs, err := s.SubscriptionRepo.ListByExternalCustomerID(ctx, provider, customerID)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(lo.Map(subs, func(sub *subscription.Subscription, _ int) string { return sub.TenantID })), nil
}

// tenantByObject falls back to the event's own object: a subscription id
// not already tried, then the tenant id echoed back in provider metadata
func (s *billingWebhookService) tenantByObject(ctx context.Context, provider types.BillingProvider, event *webhookevent.ProviderEvent) (string, error) {
	if event.ObjectID != "" && event.ObjectID != event.ExternalSubscriptionID {
		sub, err := s.SubscriptionRepo.GetByExternalID(ctx, provider, event.ObjectID)
		if err == nil {
			return sub.TenantID, nil
		}
		if !ierr.IsNotFound(err) {
			return "", err
		}
	}

	if event.TenantHint == "" {
		return "", nil
	}
	t, err := s.TenantRepo.Get(ctx, event.TenantHint)
	if err != nil {
		if ierr.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return t.ID, nil
}

// dispatch applies the event. It reports false for a subscription snapshot
// older than what the subscription already reflects. Payment events always
// run the tenant transitions; only their subscription status write is
// skipped when a newer snapshot has landed.
func (s *billingWebhookService) dispatch(ctx context.Context, row *webhookevent.WebhookEvent, event *webhookevent.ProviderEvent, res *webhookResolution) (bool, error) {
	t, err := s.TenantRepo.Get(ctx, res.tenantID)
	if err != nil {
		return false, err
	}

	sub := res.subscription
	stale := sub != nil && !event.OccurredAt.IsZero() && sub.IsStale(event.OccurredAt)
	actor := lifecycle.Actor{Type: types.ActorTypeWebhook, ID: row.ID}

	switch event.Type {
	case types.BillingEventSubscriptionCreated, types.BillingEventSubscriptionUpdated, types.BillingEventSubscriptionDeleted:
		if stale {
			s.Logger.WithContext(ctx).Infow("skipping out of order subscription snapshot",
				"webhook_event_id", row.ID,
				"occurred_at", event.OccurredAt,
				"last_event_at", sub.LastEventAt,
			)
			return false, nil
		}
	}

	switch event.Type {
	case types.BillingEventSubscriptionCreated, types.BillingEventSubscriptionUpdated:
		return true, s.applySubscription(ctx, t, sub, row.Provider, event)

	case types.BillingEventSubscriptionDeleted:
		if sub != nil {
			now := time.Now().UTC()
			sub.Status = types.SubscriptionStatusCanceled
			sub.CanceledAt = lo.CoalesceOrEmpty(event.CanceledAt, &now)
			s.touch(sub, event)
			if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
				return false, err
			}
		}
		if t.Status == types.TenantStatusActive || t.Status == types.TenantStatusSuspended {
			_, err := s.lifecycle.Cancel(ctx, t.ID, CancelRequest{
				Reason: "subscription cancelled by billing provider",
			}, actor)
			return true, err
		}
		return true, nil

	case types.BillingEventPaymentSucceeded:
		if sub != nil && !stale {
			if sub.Status == types.SubscriptionStatusPastDue || sub.Status == types.SubscriptionStatusUnpaid {
				sub.Status = types.SubscriptionStatusActive
			}
			s.touch(sub, event)
			if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
				return false, err
			}
		}
		switch t.Status {
		case types.TenantStatusSuspended:
			_, err := s.lifecycle.Resume(ctx, t.ID, "payment recovered", actor)
			return true, err
		case types.TenantStatusProvisioning:
			return true, s.activateProvisioned(ctx, t, actor)
		}
		return true, nil

	case types.BillingEventPaymentFailed:
		if sub != nil && !stale {
			sub.Status = types.SubscriptionStatusPastDue
			s.touch(sub, event)
			if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
				return false, err
			}
		}
		if t.Status == types.TenantStatusActive {
			reason := lo.CoalesceOrEmpty(event.FailureMessage, "payment failed")
			if _, err := s.lifecycle.Suspend(ctx, t.ID, reason, nil, actor); err != nil {
				return false, err
			}
		}
		_, err := s.alerts.RaiseOnce(ctx, NewPaymentFailureAlert(ctx, t.ID, row.ID, map[string]interface{}{
			"external_event_id": row.ExternalEventID,
			"amount_due":        event.AmountDue,
			"currency":          event.Currency,
			"failure_message":   event.FailureMessage,
		}))
		return true, err
	}

	return true, nil
}

// activateProvisioned activates a paid tenant whose setup steps have all
// completed. While steps remain the provisioning run activates the tenant
// itself once it finishes.
func (s *billingWebhookService) activateProvisioned(ctx context.Context, t *domainTenant.Tenant, actor lifecycle.Actor) error {
	log := s.Logger.WithContext(ctx).WithTenant(t.ID)

	run, err := s.ProvisioningRepo.Get(ctx, t.ID)
	if ierr.IsNotFound(err) {
		log.Infow("payment received before provisioning started; activation deferred")
		return nil
	}
	if err != nil {
		return err
	}
	if step, pending := run.NextStep(); pending {
		log.Infow("payment received while provisioning; activation deferred", "next_step", step)
		return nil
	}

	_, err = s.lifecycle.Activate(ctx, t.ID, "payment succeeded", actor)
	return err
}

// applySubscription creates or updates the tenant's subscription from a
// provider snapshot and keeps the tenant's plan summary in step
func (s *billingWebhookService) applySubscription(ctx context.Context, t *domainTenant.Tenant, sub *subscription.Subscription, provider types.BillingProvider, event *webhookevent.ProviderEvent) error {
	now := time.Now().UTC()
	isNew := sub == nil
	if isNew {
		sub = &subscription.Subscription{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
			TenantID:      t.ID,
			Provider:      provider,
			BillingPeriod: types.BillingPeriodMonthly,
			CreatedAt:     now,
		}
	}

	sub.Provider = provider
	if event.ExternalSubscriptionID != "" {
		sub.ExternalSubscriptionID = lo.ToPtr(event.ExternalSubscriptionID)
	}
	if event.ExternalCustomerID != "" {
		sub.ExternalCustomerID = lo.ToPtr(event.ExternalCustomerID)
	}
	if event.SubscriptionStatus != "" {
		sub.Status = event.SubscriptionStatus
	}
	if event.BillingPeriod != "" {
		sub.BillingPeriod = event.BillingPeriod
	}
	sub.CurrentPeriodStart = lo.CoalesceOrEmpty(event.CurrentPeriodStart, sub.CurrentPeriodStart)
	sub.CurrentPeriodEnd = lo.CoalesceOrEmpty(event.CurrentPeriodEnd, sub.CurrentPeriodEnd)
	sub.TrialStart = lo.CoalesceOrEmpty(event.TrialStart, sub.TrialStart)
	sub.TrialEnd = lo.CoalesceOrEmpty(event.TrialEnd, sub.TrialEnd)
	sub.CanceledAt = lo.CoalesceOrEmpty(event.CanceledAt, sub.CanceledAt)

	p, err := s.planForEvent(ctx, event)
	if err != nil {
		return err
	}
	if p != nil {
		sub.PlanID = p.ID
		sub.PlanName = p.Name
	}
	s.touch(sub, event)

	if isNew {
		if sub.Status == "" {
			sub.Status = types.SubscriptionStatusActive
		}
		if err := s.SubscriptionRepo.Create(ctx, sub); err != nil {
			return err
		}
	} else if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return err
	}

	if p == nil || t.PlanName == p.Name {
		return nil
	}
	current, err := s.TenantRepo.Get(ctx, t.ID)
	if err != nil {
		return err
	}
	current.PlanName = p.Name
	current.MaxEmployees = p.MaxEmployees
	current.UpdatedAt = now
	current.UpdatedBy = types.DefaultUserID
	return s.TenantRepo.Update(ctx, current)
}

// planForEvent maps the provider price or plan name onto the catalogue
func (s *billingWebhookService) planForEvent(ctx context.Context, event *webhookevent.ProviderEvent) (*plan.Plan, error) {
	if event.ExternalPriceID != "" {
		plans, err := s.PlanRepo.List(ctx)
		if err != nil {
			return nil, err
		}
		if p, ok := lo.Find(plans, func(p *plan.Plan) bool {
			return lo.FromPtr(p.ExternalPriceID) == event.ExternalPriceID
		}); ok {
			return p, nil
		}
	}
	if event.PlanName != "" {
		p, err := s.PlanRepo.GetByName(ctx, event.PlanName)
		if err == nil {
			return p, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}
	return nil, nil
}

// touch advances the subscription's event clock; it never moves it back
func (s *billingWebhookService) touch(sub *subscription.Subscription, event *webhookevent.ProviderEvent) {
	sub.UpdatedAt = time.Now().UTC()
	if !event.OccurredAt.IsZero() && !sub.IsStale(event.OccurredAt) {
		sub.LastEventAt = lo.ToPtr(event.OccurredAt)
	}
}
