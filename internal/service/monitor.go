package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

// scan names, used as the metrics label
const (
	scanQuota    = "quota"
	scanGrace    = "grace_expiry"
	scanDeletion = "deletion"
)

// MonitorService runs the time based lifecycle checks
type MonitorService interface {
	// RunOnce performs every scan once and reports what it did. A failure
	// for one tenant is counted and logged; it does not stop the pass.
	RunOnce(ctx context.Context) (*dto.MonitorScanResult, error)
	CheckQuotas(ctx context.Context) (int, error)
	ExpireGracePeriods(ctx context.Context) (int, error)
	ProcessDeletions(ctx context.Context) (started int, deleted int, err error)
}

type monitorService struct {
	ServiceParams
	lifecycle LifecycleService
	plans     PlanService
	alerts    AlertService
	usage     UsageService
	now       func() time.Time
}

func NewMonitorService(params ServiceParams) MonitorService {
	return &monitorService{
		ServiceParams: params,
		lifecycle:     NewLifecycleService(params),
		plans:         NewPlanService(params),
		alerts:        NewAlertService(params),
		usage:         NewUsageService(params),
		now:           time.Now,
	}
}

func (s *monitorService) actor() lifecycle.Actor {
	return lifecycle.Actor{Type: types.ActorTypeMonitor}
}

func (s *monitorService) RunOnce(ctx context.Context) (*dto.MonitorScanResult, error) {
	// per pass; the ticker and the cron endpoint may overlap
	var failed atomic.Int64
	result := &dto.MonitorScanResult{}

	checked, err := s.checkQuotas(ctx, &failed)
	if err != nil {
		return nil, err
	}
	result.QuotaChecked = checked

	expired, err := s.expireGracePeriods(ctx, &failed)
	if err != nil {
		return nil, err
	}
	result.GraceExpired = expired

	started, deleted, err := s.processDeletions(ctx, &failed)
	if err != nil {
		return nil, err
	}
	result.DeletionsStarted = started
	result.Deleted = deleted
	result.Failed = int(failed.Load())

	s.Logger.WithContext(ctx).Infow("lifecycle monitor pass completed",
		"quota_checked", result.QuotaChecked,
		"grace_expired", result.GraceExpired,
		"deletions_started", result.DeletionsStarted,
		"deleted", result.Deleted,
		"failed", result.Failed,
	)
	return result, nil
}

// forEachTenant pages through the tenants matching filter and runs fn for
// each with bounded concurrency. It returns how many fn calls succeeded;
// failing calls are added to failed.
func (s *monitorService) forEachTenant(ctx context.Context, scan string, filter *types.TenantFilter, failed *atomic.Int64, fn func(ctx context.Context, t *domainTenant.Tenant) (bool, error)) (int, error) {
	start := time.Now()
	defer func() { s.Metrics.MonitorScan(scan, time.Since(start)) }()

	batchSize := lo.Max([]int{1, s.Config.Lifecycle.ScanBatchSize})
	filter.QueryFilter = types.NewDefaultQueryFilter()
	filter.QueryFilter.Limit = lo.ToPtr(batchSize)

	total := 0
	offset := 0
	for {
		filter.QueryFilter.Offset = lo.ToPtr(offset)
		tenants, err := s.TenantRepo.List(ctx, filter)
		if err != nil {
			return total, err
		}

		var done atomic.Int64
		p := pool.New().WithMaxGoroutines(lo.Max([]int{1, s.Config.Lifecycle.ScanConcurrency}))
		for _, t := range tenants {
			p.Go(func() {
				ok, err := fn(ctx, t)
				if err != nil {
					failed.Add(1)
					s.Logger.WithContext(ctx).Errorw("lifecycle monitor check failed",
						"scan", scan,
						"tenant_id", t.ID,
						"error", err,
					)
					return
				}
				if ok {
					done.Add(1)
				}
			})
		}
		p.Wait()
		total += int(done.Load())

		if len(tenants) < batchSize {
			break
		}
		// transitioned tenants drop out of the filter; page past the rest
		if scan == scanQuota {
			offset += len(tenants)
		} else {
			offset += len(tenants) - int(done.Load())
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
	return total, nil
}

func (s *monitorService) CheckQuotas(ctx context.Context) (int, error) {
	return s.checkQuotas(ctx, new(atomic.Int64))
}

func (s *monitorService) checkQuotas(ctx context.Context, failed *atomic.Int64) (int, error) {
	filter := types.NewTenantFilter()
	filter.Statuses = []types.TenantStatus{types.TenantStatusActive}

	return s.forEachTenant(ctx, scanQuota, filter, failed, func(ctx context.Context, t *domainTenant.Tenant) (bool, error) {
		if t.PlanName == "" {
			return false, nil
		}
		p, err := s.plans.GetPlanByName(ctx, t.PlanName)
		if err != nil {
			return false, err
		}
		m, err := s.usage.Current(ctx, t.ID)
		if err != nil {
			return false, err
		}
		if err := s.alerts.CheckQuotas(ctx, t, p, m); err != nil {
			return false, err
		}
		return true, nil
	})
}

// ExpireGracePeriods cancels suspended tenants whose grace deadline passed.
// The transition re-reads the tenant, so a tenant resumed in between is
// skipped rather than cancelled.
func (s *monitorService) ExpireGracePeriods(ctx context.Context) (int, error) {
	return s.expireGracePeriods(ctx, new(atomic.Int64))
}

func (s *monitorService) expireGracePeriods(ctx context.Context, failed *atomic.Int64) (int, error) {
	now := s.now().UTC()
	filter := types.NewTenantFilter()
	filter.Statuses = []types.TenantStatus{types.TenantStatusSuspended}
	filter.GracePeriodEndsBefore = &now

	return s.forEachTenant(ctx, scanGrace, filter, failed, func(ctx context.Context, t *domainTenant.Tenant) (bool, error) {
		_, err := s.lifecycle.Cancel(ctx, t.ID, CancelRequest{
			Reason: "grace period expired",
		}, s.actor())
		if benignRace(err) {
			return false, nil
		}
		return err == nil, err
	})
}

// ProcessDeletions moves cancelled tenants past their retention deadline to
// PendingDeletion and hard deletes those already pending
func (s *monitorService) ProcessDeletions(ctx context.Context) (int, int, error) {
	return s.processDeletions(ctx, new(atomic.Int64))
}

func (s *monitorService) processDeletions(ctx context.Context, failed *atomic.Int64) (int, int, error) {
	now := s.now().UTC()

	cancelled := types.NewTenantFilter()
	cancelled.Statuses = []types.TenantStatus{types.TenantStatusCancelled}
	cancelled.ScheduledDeletionBefore = &now

	started, err := s.forEachTenant(ctx, scanDeletion, cancelled, failed, func(ctx context.Context, t *domainTenant.Tenant) (bool, error) {
		_, err := s.lifecycle.ScheduleDeletion(ctx, t.ID, "retention window elapsed", s.actor())
		if benignRace(err) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return started, 0, err
	}

	pending := types.NewTenantFilter()
	pending.Statuses = []types.TenantStatus{types.TenantStatusPendingDeletion}
	pending.ScheduledDeletionBefore = &now

	deleted, err := s.forEachTenant(ctx, scanDeletion, pending, failed, func(ctx context.Context, t *domainTenant.Tenant) (bool, error) {
		err := s.lifecycle.HardDelete(ctx, t.ID, "retention window elapsed", s.actor())
		if benignRace(err) || ierr.IsNotFound(err) {
			return false, nil
		}
		return err == nil, err
	})
	return started, deleted, err
}

// benignRace reports errors meaning another actor already moved the tenant
func benignRace(err error) bool {
	return err != nil && (ierr.IsInvalidOperation(err) || ierr.IsVersionConflict(err))
}
