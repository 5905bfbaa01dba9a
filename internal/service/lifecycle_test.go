package service

import (
	"testing"
	"time"

	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type LifecycleServiceSuite struct {
	testutil.BaseServiceTestSuite
	service LifecycleService
	params  ServiceParams
	actor   lifecycle.Actor
}

func TestLifecycleService(t *testing.T) {
	suite.Run(t, new(LifecycleServiceSuite))
}

func (s *LifecycleServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewLifecycleService(s.params)
	s.actor = lifecycle.Actor{Type: types.ActorTypeOperator, ID: "op_1"}
}

func (s *LifecycleServiceSuite) TestTransitionWritesOneEvent() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusProvisioning, "starter")

	updated, err := s.service.CompleteProvisioning(ctx, t.ID, s.actor)
	s.Require().NoError(err)
	s.Equal(types.TenantStatusActive, updated.Status)
	s.NotNil(updated.ProvisionedAt)
	s.NotNil(updated.ActivatedAt)
	s.True(updated.SubscriptionActive)

	events, err := s.GetStores().LifecycleEventRepo.ListByTenant(ctx, t.ID, types.NewNoLimitQueryFilter())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(types.LifecycleEventProvisioningCompleted, events[0].EventType)
	s.Equal(types.TenantStatusProvisioning, events[0].PreviousStatus)
	s.Equal(types.TenantStatusActive, events[0].NewStatus)
	s.Equal(types.ActorTypeOperator, events[0].ActorType)
	s.Equal("op_1", events[0].ActorID)

	s.Equal([]types.LifecycleEventType{types.LifecycleEventProvisioningCompleted}, s.GetPublisher().LifecycleEventTypes())
}

func (s *LifecycleServiceSuite) TestInvalidTransitionRejected() {
	ctx := s.GetContext()

	tests := []struct {
		name string
		from types.TenantStatus
		call func(id string) error
	}{
		{
			name: "resume an active tenant",
			from: types.TenantStatusActive,
			call: func(id string) error {
				_, err := s.service.Resume(ctx, id, "resume", s.actor)
				return err
			},
		},
		{
			name: "suspend a provisioning tenant",
			from: types.TenantStatusProvisioning,
			call: func(id string) error {
				_, err := s.service.Suspend(ctx, id, "unpaid", nil, s.actor)
				return err
			},
		},
		{
			name: "cancel a deleted-pending tenant",
			from: types.TenantStatusPendingDeletion,
			call: func(id string) error {
				_, err := s.service.Cancel(ctx, id, CancelRequest{Reason: "again"}, s.actor)
				return err
			},
		},
		{
			name: "hard delete an active tenant",
			from: types.TenantStatusActive,
			call: func(id string) error {
				return s.service.HardDelete(ctx, id, "too early", s.actor)
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			t := seedTenant(ctx, &s.BaseServiceTestSuite, tt.from, "starter")

			err := tt.call(t.ID)
			s.Require().Error(err)
			s.True(ierr.IsInvalidOperation(err))

			stored, err := s.GetStores().TenantRepo.Get(ctx, t.ID)
			s.Require().NoError(err)
			s.Equal(tt.from, stored.Status)

			count, err := s.GetStores().LifecycleEventRepo.CountByTenant(ctx, t.ID)
			s.Require().NoError(err)
			s.Zero(count)
		})
	}
}

func (s *LifecycleServiceSuite) TestSuspendSetsGraceDeadline() {
	ctx := s.GetContext()

	s.Run("default grace period", func() {
		t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")
		before := time.Now().UTC()

		updated, err := s.service.Suspend(ctx, t.ID, "payment failed", nil, s.actor)
		s.Require().NoError(err)
		s.Equal(types.TenantStatusSuspended, updated.Status)
		s.Equal("payment failed", updated.SuspensionReason)
		s.False(updated.SubscriptionActive)
		s.Require().NotNil(updated.GracePeriodEndsAt)
		s.WithinDuration(before.Add(30*24*time.Hour), *updated.GracePeriodEndsAt, time.Minute)
	})

	s.Run("explicit grace period", func() {
		t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")

		updated, err := s.service.Suspend(ctx, t.ID, "abuse", lo.ToPtr(48*time.Hour), s.actor)
		s.Require().NoError(err)
		s.WithinDuration(time.Now().UTC().Add(48*time.Hour), *updated.GracePeriodEndsAt, time.Minute)
	})

	s.Run("negative grace period", func() {
		t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")

		_, err := s.service.Suspend(ctx, t.ID, "abuse", lo.ToPtr(-time.Hour), s.actor)
		s.Require().Error(err)
		s.True(ierr.IsValidation(err))
	})
}

func (s *LifecycleServiceSuite) TestResumeClearsSuspension() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")

	_, err := s.service.Suspend(ctx, t.ID, "payment failed", nil, s.actor)
	s.Require().NoError(err)

	resumed, err := s.service.Resume(ctx, t.ID, "paid", s.actor)
	s.Require().NoError(err)
	s.Equal(types.TenantStatusActive, resumed.Status)
	s.Empty(resumed.SuspensionReason)
	s.True(resumed.SubscriptionActive)

	s.Equal([]types.LifecycleEventType{
		types.LifecycleEventSuspended,
		types.LifecycleEventResumed,
	}, s.GetPublisher().LifecycleEventTypes())
}

func (s *LifecycleServiceSuite) TestCancelSchedulesDeletion() {
	ctx := s.GetContext()

	s.Run("retention deadline only", func() {
		t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")

		updated, err := s.service.Cancel(ctx, t.ID, CancelRequest{Reason: "customer left"}, s.actor)
		s.Require().NoError(err)
		s.Equal(types.TenantStatusCancelled, updated.Status)
		s.Require().NotNil(updated.ScheduledDeletionAt)
		s.WithinDuration(time.Now().UTC().Add(90*24*time.Hour), *updated.ScheduledDeletionAt, time.Minute)
	})

	s.Run("immediate scheduling", func() {
		t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusSuspended, "starter")

		updated, err := s.service.Cancel(ctx, t.ID, CancelRequest{
			Reason:           "customer left",
			ScheduleDeletion: true,
			Retention:        lo.ToPtr(time.Hour),
		}, s.actor)
		s.Require().NoError(err)
		s.Equal(types.TenantStatusPendingDeletion, updated.Status)
		s.WithinDuration(time.Now().UTC().Add(time.Hour), *updated.ScheduledDeletionAt, time.Minute)

		count, err := s.GetStores().LifecycleEventRepo.CountByTenant(ctx, t.ID)
		s.Require().NoError(err)
		s.Equal(2, count)
	})
}

func (s *LifecycleServiceSuite) TestHardDeleteCascades() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusPendingDeletion, "starter")
	other := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")
	seedUser(ctx, &s.BaseServiceTestSuite, t.ID, "gone@acme.test")
	seedUser(ctx, &s.BaseServiceTestSuite, other.ID, "kept@acme.test")
	s.Require().NoError(s.GetStores().UsageRepo.Increment(ctx, t.ID, types.UsagePeriod(time.Now()), types.UsageCounterEmployees, 3))

	err := s.service.HardDelete(ctx, t.ID, "retention window elapsed", s.actor)
	s.Require().NoError(err)

	_, err = s.GetStores().TenantRepo.Get(ctx, t.ID)
	s.True(ierr.IsNotFound(err))

	_, err = s.GetStores().UserStore.FindByNaturalKey(ctx, t.ID, "gone@acme.test")
	s.True(ierr.IsNotFound(err))
	_, err = s.GetStores().UsageRepo.Get(ctx, t.ID, types.UsagePeriod(time.Now()))
	s.True(ierr.IsNotFound(err))

	// other tenants are untouched
	_, err = s.GetStores().UserStore.FindByNaturalKey(ctx, other.ID, "kept@acme.test")
	s.NoError(err)

	// the deleted event outlives the tenant
	events, err := s.GetStores().LifecycleEventRepo.ListByTenant(ctx, t.ID, types.NewNoLimitQueryFilter())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(types.LifecycleEventDeleted, events[0].EventType)
	s.Equal(types.TenantStatusDeleted, events[0].NewStatus)
}

func (s *LifecycleServiceSuite) TestProvisioningRetryClearsFailure() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusProvisioning, "starter")

	failed, err := s.service.FailProvisioning(ctx, t.ID, "step roles failed", nil, s.actor)
	s.Require().NoError(err)
	s.Equal(types.TenantStatusProvisioningFailed, failed.Status)
	s.Equal("step roles failed", failed.FailureReason)
	s.NotNil(failed.ProvisioningFailedAt)

	retried, err := s.service.RetryProvisioning(ctx, t.ID, s.actor)
	s.Require().NoError(err)
	s.Equal(types.TenantStatusProvisioning, retried.Status)
	s.Empty(retried.FailureReason)
}

func (s *LifecycleServiceSuite) TestPublishFailureDoesNotFailTransition() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")
	s.GetPublisher().Err = ierr.NewError("broker down").Mark(ierr.ErrSystem)

	updated, err := s.service.Suspend(ctx, t.ID, "payment failed", nil, s.actor)
	s.Require().NoError(err)
	s.Equal(types.TenantStatusSuspended, updated.Status)
}

func (s *LifecycleServiceSuite) TestRecordEventKeepsStatus() {
	ctx := s.GetContext()
	t := seedTenant(ctx, &s.BaseServiceTestSuite, types.TenantStatusActive, "starter")

	event, err := s.service.RecordEvent(ctx, t.ID, types.LifecycleEventPlanChanged, "upgrade",
		map[string]any{"to_plan": "growth"}, s.actor)
	s.Require().NoError(err)
	s.Equal(types.TenantStatusActive, event.PreviousStatus)
	s.Equal(types.TenantStatusActive, event.NewStatus)

	resp, err := s.service.ListEvents(ctx, t.ID, nil)
	s.Require().NoError(err)
	s.Equal(1, resp.Pagination.Total)
}
