package service

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

// LifecycleService is the only writer of Tenant.Status
type LifecycleService interface {
	Transition(ctx context.Context, req TransitionRequest) (*domainTenant.Tenant, error)

	CompleteProvisioning(ctx context.Context, tenantID string, actor lifecycle.Actor) (*domainTenant.Tenant, error)
	FailProvisioning(ctx context.Context, tenantID, reason string, metadata map[string]any, actor lifecycle.Actor) (*domainTenant.Tenant, error)
	RetryProvisioning(ctx context.Context, tenantID string, actor lifecycle.Actor) (*domainTenant.Tenant, error)

	Activate(ctx context.Context, tenantID, reason string, actor lifecycle.Actor) (*domainTenant.Tenant, error)
	Suspend(ctx context.Context, tenantID, reason string, gracePeriod *time.Duration, actor lifecycle.Actor) (*domainTenant.Tenant, error)
	Resume(ctx context.Context, tenantID, reason string, actor lifecycle.Actor) (*domainTenant.Tenant, error)
	Cancel(ctx context.Context, tenantID string, req CancelRequest, actor lifecycle.Actor) (*domainTenant.Tenant, error)
	ScheduleDeletion(ctx context.Context, tenantID, reason string, actor lifecycle.Actor) (*domainTenant.Tenant, error)
	HardDelete(ctx context.Context, tenantID, reason string, actor lifecycle.Actor) error

	// RecordEvent appends a status-preserving event such as plan_changed
	RecordEvent(ctx context.Context, tenantID string, eventType types.LifecycleEventType, reason string, metadata map[string]any, actor lifecycle.Actor) (*lifecycle.Event, error)
	ListEvents(ctx context.Context, tenantID string, filter *types.QueryFilter) (*dto.ListLifecycleEventsResponse, error)
}

// TransitionRequest is one requested status change
type TransitionRequest struct {
	TenantID string
	To       types.TenantStatus
	Reason   string
	Actor    lifecycle.Actor
	Metadata map[string]any
	// EventType overrides the event type of the graph edge
	EventType types.LifecycleEventType
	// GracePeriod overrides the configured grace period on suspension
	GracePeriod *time.Duration
	// Retention overrides the configured retention window on cancellation
	Retention *time.Duration
}

type CancelRequest struct {
	Reason           string
	ScheduleDeletion bool
	Retention        *time.Duration
}

type lifecycleService struct {
	ServiceParams
	now func() time.Time
}

func NewLifecycleService(params ServiceParams) LifecycleService {
	return &lifecycleService{
		ServiceParams: params,
		now:           time.Now,
	}
}

// ActorFromContext derives the lifecycle actor from the resolved request
func ActorFromContext(ctx context.Context) lifecycle.Actor {
	userID := types.GetUserID(ctx)
	switch types.GetCapability(ctx) {
	case types.CapabilityPlatformOperator:
		return lifecycle.Actor{Type: types.ActorTypeOperator, ID: userID}
	case types.CapabilityTenantAdmin, types.CapabilityTenantMember:
		return lifecycle.Actor{Type: types.ActorTypeTenant, ID: userID}
	default:
		return lifecycle.Actor{Type: types.ActorTypeSystem, ID: lo.CoalesceOrEmpty(userID, types.DefaultUserID)}
	}
}

// Transition validates the edge against freshly locked state, stamps the
// lifecycle timestamps and writes the status with one LifecycleEvent. The
// event is published once the surrounding transaction commits.
func (s *lifecycleService) Transition(ctx context.Context, req TransitionRequest) (*domainTenant.Tenant, error) {
	var result *domainTenant.Tenant

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.TenantRepo.GetForUpdate(ctx, req.TenantID)
		if err != nil {
			return err
		}

		edge, ok := domainTenant.FindTransition(current.Status, req.To)
		if !ok {
			return ierr.NewError("invalid lifecycle transition").
				WithHintf("Tenant cannot move from %s to %s", current.Status, req.To).
				WithReportableDetails(map[string]any{
					"tenant_id":  req.TenantID,
					"from":       current.Status,
					"to":         req.To,
					"allowed_to": domainTenant.TargetsFrom(current.Status),
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		now := s.now().UTC()
		next := current.Copy()
		s.stamp(next, req, now)
		next.Status = req.To
		next.UpdatedAt = now
		next.UpdatedBy = lo.CoalesceOrEmpty(req.Actor.ID, types.DefaultUserID)

		if err := s.TenantRepo.ApplyTransition(ctx, next, current.Status); err != nil {
			return err
		}

		event := &lifecycle.Event{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LIFECYCLE_EVENT),
			TenantID:       current.ID,
			EventType:      lo.CoalesceOrEmpty(req.EventType, edge.Event),
			PreviousStatus: current.Status,
			NewStatus:      req.To,
			Reason:         req.Reason,
			ActorType:      req.Actor.Type,
			ActorID:        req.Actor.ID,
			Metadata:       req.Metadata,
			CreatedAt:      now,
		}
		if err := s.LifecycleEventRepo.Create(ctx, event); err != nil {
			return err
		}

		s.DB.AfterCommit(ctx, func() {
			s.Metrics.Transition(event.PreviousStatus, event.NewStatus)
			s.publish(ctx, event)
		})

		s.Logger.WithContext(ctx).Infow("tenant lifecycle transition",
			"tenant_id", current.ID,
			"from", current.Status,
			"to", req.To,
			"event_type", event.EventType,
			"actor_type", req.Actor.Type,
			"actor_id", req.Actor.ID,
		)

		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// stamp sets the timestamps and reasons that belong to the target status.
// First-time markers such as ActivatedAt are never overwritten.
func (s *lifecycleService) stamp(t *domainTenant.Tenant, req TransitionRequest, now time.Time) {
	switch req.To {
	case types.TenantStatusActive:
		if t.Status == types.TenantStatusProvisioning && t.ProvisionedAt == nil {
			t.ProvisionedAt = lo.ToPtr(now)
		}
		if t.ActivatedAt == nil {
			t.ActivatedAt = lo.ToPtr(now)
		}
		t.SubscriptionActive = true
		t.SuspensionReason = ""
	case types.TenantStatusProvisioningFailed:
		t.ProvisioningFailedAt = lo.ToPtr(now)
		t.FailureReason = req.Reason
	case types.TenantStatusProvisioning:
		t.FailureReason = ""
	case types.TenantStatusSuspended:
		grace := lo.FromPtrOr(req.GracePeriod, s.Config.Lifecycle.GracePeriod)
		t.SuspendedAt = lo.ToPtr(now)
		t.GracePeriodEndsAt = lo.ToPtr(now.Add(grace))
		t.SuspensionReason = req.Reason
		t.SubscriptionActive = false
	case types.TenantStatusCancelled:
		retention := lo.FromPtrOr(req.Retention, s.Config.Lifecycle.RetentionWindow)
		t.CancelledAt = lo.ToPtr(now)
		t.ScheduledDeletionAt = lo.ToPtr(now.Add(retention))
		t.CancellationReason = req.Reason
		t.SubscriptionActive = false
	case types.TenantStatusPendingDeletion:
		if t.ScheduledDeletionAt == nil {
			t.ScheduledDeletionAt = lo.ToPtr(now.Add(s.Config.Lifecycle.RetentionWindow))
		}
	case types.TenantStatusDeleted:
		t.DeletedAt = lo.ToPtr(now)
	}
}

func (s *lifecycleService) publish(ctx context.Context, event *lifecycle.Event) {
	if s.EventPublisher == nil {
		return
	}
	if err := s.EventPublisher.PublishLifecycleEvent(ctx, event); err != nil {
		s.Logger.WithContext(ctx).Warnw("failed to publish lifecycle event",
			"tenant_id", event.TenantID,
			"event_id", event.ID,
			"event_type", event.EventType,
			"error", err,
		)
	}
}

func (s *lifecycleService) CompleteProvisioning(ctx context.Context, tenantID string, actor lifecycle.Actor) (*domainTenant.Tenant, error) {
	return s.Transition(ctx, TransitionRequest{
		TenantID: tenantID,
		To:       types.TenantStatusActive,
		Reason:   "provisioning completed",
		Actor:    actor,
	})
}

func (s *lifecycleService) FailProvisioning(ctx context.Context, tenantID, reason string, metadata map[string]any, actor lifecycle.Actor) (*domainTenant.Tenant, error) {
	return s.Transition(ctx, TransitionRequest{
		TenantID: tenantID,
		To:       types.TenantStatusProvisioningFailed,
		Reason:   reason,
		Actor:    actor,
		Metadata: metadata,
	})
}

func (s *lifecycleService) RetryProvisioning(ctx context.Context, tenantID string, actor lifecycle.Actor) (*domainTenant.Tenant, error) {
	return s.Transition(ctx, TransitionRequest{
		TenantID: tenantID,
		To:       types.TenantStatusProvisioning,
		Reason:   "provisioning retry requested",
		Actor:    actor,
	})
}

func (s *lifecycleService) Activate(ctx context.Context, tenantID, reason string, actor lifecycle.Actor) (*domainTenant.Tenant, error) {
	return s.Transition(ctx, TransitionRequest{
		TenantID:  tenantID,
		To:        types.TenantStatusActive,
		Reason:    reason,
		Actor:     actor,
		EventType: types.LifecycleEventActivated,
	})
}

func (s *lifecycleService) Suspend(ctx context.Context, tenantID, reason string, gracePeriod *time.Duration, actor lifecycle.Actor) (*domainTenant.Tenant, error) {
	if gracePeriod != nil && *gracePeriod < 0 {
		return nil, ierr.NewError("grace period cannot be negative").
			WithHint("Grace period cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return s.Transition(ctx, TransitionRequest{
		TenantID:    tenantID,
		To:          types.TenantStatusSuspended,
		Reason:      reason,
		Actor:       actor,
		GracePeriod: gracePeriod,
		Metadata: map[string]any{
			"grace_period_hours": lo.FromPtrOr(gracePeriod, s.Config.Lifecycle.GracePeriod).Hours(),
		},
	})
}

func (s *lifecycleService) Resume(ctx context.Context, tenantID, reason string, actor lifecycle.Actor) (*domainTenant.Tenant, error) {
	return s.Transition(ctx, TransitionRequest{
		TenantID: tenantID,
		To:       types.TenantStatusActive,
		Reason:   reason,
		Actor:    actor,
	})
}

// Cancel always stamps a retention deadline; ScheduleDeletion additionally
// moves the tenant on to PendingDeletion in the same unit of work.
func (s *lifecycleService) Cancel(ctx context.Context, tenantID string, req CancelRequest, actor lifecycle.Actor) (*domainTenant.Tenant, error) {
	if req.Retention != nil && *req.Retention < 0 {
		return nil, ierr.NewError("retention window cannot be negative").
			WithHint("Retention window cannot be negative").
			Mark(ierr.ErrValidation)
	}

	var result *domainTenant.Tenant
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.Transition(ctx, TransitionRequest{
			TenantID:  tenantID,
			To:        types.TenantStatusCancelled,
			Reason:    req.Reason,
			Actor:     actor,
			Retention: req.Retention,
			Metadata: map[string]any{
				"schedule_deletion": req.ScheduleDeletion,
			},
		})
		if err != nil {
			return err
		}
		result = t

		if !req.ScheduleDeletion {
			return nil
		}
		result, err = s.Transition(ctx, TransitionRequest{
			TenantID: tenantID,
			To:       types.TenantStatusPendingDeletion,
			Reason:   req.Reason,
			Actor:    actor,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *lifecycleService) ScheduleDeletion(ctx context.Context, tenantID, reason string, actor lifecycle.Actor) (*domainTenant.Tenant, error) {
	return s.Transition(ctx, TransitionRequest{
		TenantID: tenantID,
		To:       types.TenantStatusPendingDeletion,
		Reason:   reason,
		Actor:    actor,
	})
}

// HardDelete writes the final LifecycleEvent, purges every tenant-owned
// table and removes the tenant row, all in one transaction. The events
// table is kept; it is the last durable trace of the tenant.
func (s *lifecycleService) HardDelete(ctx context.Context, tenantID, reason string, actor lifecycle.Actor) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.Transition(ctx, TransitionRequest{
			TenantID: tenantID,
			To:       types.TenantStatusDeleted,
			Reason:   reason,
			Actor:    actor,
		}); err != nil {
			return err
		}

		for _, table := range types.TenantOwnedTables {
			purger, ok := s.Purgers[table]
			if !ok {
				continue
			}
			if err := purger.DeleteByTenant(ctx, tenantID); err != nil {
				return ierr.WithError(err).
					WithHintf("Failed to purge %s", table).
					WithReportableDetails(map[string]any{"tenant_id": tenantID, "table": table}).
					Mark(ierr.ErrDatabase)
			}
		}

		if err := s.TenantRepo.Delete(ctx, tenantID); err != nil {
			return err
		}

		s.Logger.WithContext(ctx).Infow("tenant hard deleted", "tenant_id", tenantID)
		return nil
	})
}

func (s *lifecycleService) RecordEvent(ctx context.Context, tenantID string, eventType types.LifecycleEventType, reason string, metadata map[string]any, actor lifecycle.Actor) (*lifecycle.Event, error) {
	var event *lifecycle.Event

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.TenantRepo.Get(ctx, tenantID)
		if err != nil {
			return err
		}

		event = &lifecycle.Event{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LIFECYCLE_EVENT),
			TenantID:       t.ID,
			EventType:      eventType,
			PreviousStatus: t.Status,
			NewStatus:      t.Status,
			Reason:         reason,
			ActorType:      actor.Type,
			ActorID:        actor.ID,
			Metadata:       metadata,
			CreatedAt:      s.now().UTC(),
		}
		if err := s.LifecycleEventRepo.Create(ctx, event); err != nil {
			return err
		}

		s.DB.AfterCommit(ctx, func() { s.publish(ctx, event) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *lifecycleService) ListEvents(ctx context.Context, tenantID string, filter *types.QueryFilter) (*dto.ListLifecycleEventsResponse, error) {
	if filter == nil {
		filter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.TenantRepo.Get(ctx, tenantID); err != nil {
		return nil, err
	}

	events, err := s.LifecycleEventRepo.ListByTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.LifecycleEventRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	items := lo.Map(events, func(e *lifecycle.Event, _ int) *dto.LifecycleEventResponse {
		return &dto.LifecycleEventResponse{Event: e}
	})
	return types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset()), nil
}
