package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/tenantcore/internal/domain/adminaudit"
	domainAlert "github.com/flexprice/tenantcore/internal/domain/alert"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	"github.com/flexprice/tenantcore/internal/domain/provisioning"
	"github.com/flexprice/tenantcore/internal/domain/usage"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

// InMemoryLifecycleEventStore implements lifecycle.Repository
type InMemoryLifecycleEventStore struct {
	*InMemoryStore[*lifecycle.Event]
}

func NewInMemoryLifecycleEventStore() *InMemoryLifecycleEventStore {
	return &InMemoryLifecycleEventStore{InMemoryStore: NewInMemoryStore[*lifecycle.Event]()}
}

func (s *InMemoryLifecycleEventStore) Create(ctx context.Context, e *lifecycle.Event) error {
	return s.InMemoryStore.Create(ctx, e.ID, e)
}

func (s *InMemoryLifecycleEventStore) ListByTenant(ctx context.Context, tenantID string, filter *types.QueryFilter) ([]*lifecycle.Event, error) {
	if filter == nil {
		filter = types.NewNoLimitQueryFilter()
	}
	return s.InMemoryStore.List(ctx, filter, func(_ context.Context, e *lifecycle.Event, _ interface{}) bool {
		return e.TenantID == tenantID
	}, nil)
}

func (s *InMemoryLifecycleEventStore) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	return s.InMemoryStore.Count(ctx, nil, func(_ context.Context, e *lifecycle.Event, _ interface{}) bool {
		return e.TenantID == tenantID
	})
}

// InMemoryAdminAuditStore implements adminaudit.Repository
type InMemoryAdminAuditStore struct {
	*InMemoryStore[*adminaudit.AdminAudit]
}

func NewInMemoryAdminAuditStore() *InMemoryAdminAuditStore {
	return &InMemoryAdminAuditStore{InMemoryStore: NewInMemoryStore[*adminaudit.AdminAudit]()}
}

func (s *InMemoryAdminAuditStore) Create(ctx context.Context, a *adminaudit.AdminAudit) error {
	return s.InMemoryStore.Create(ctx, a.ID, a)
}

func (s *InMemoryAdminAuditStore) List(ctx context.Context, filter *types.AdminAuditFilter) ([]*adminaudit.AdminAudit, error) {
	if filter == nil {
		filter = types.NewDefaultAdminAuditFilter()
	}
	return s.InMemoryStore.List(ctx, filter, adminAuditFilterFn, func(i, j *adminaudit.AdminAudit) bool {
		return i.CreatedAt.After(j.CreatedAt)
	})
}

func (s *InMemoryAdminAuditStore) Count(ctx context.Context, filter *types.AdminAuditFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, adminAuditFilterFn)
}

func adminAuditFilterFn(_ context.Context, a *adminaudit.AdminAudit, filter interface{}) bool {
	f, ok := filter.(*types.AdminAuditFilter)
	if !ok || f == nil {
		return true
	}
	if f.OperatorID != "" && a.OperatorID != f.OperatorID {
		return false
	}
	if f.ActionType != "" && a.ActionType != f.ActionType {
		return false
	}
	if f.TargetTenantID != "" && lo.FromPtr(a.TargetTenantID) != f.TargetTenantID {
		return false
	}
	if f.Success != nil && a.Success != *f.Success {
		return false
	}
	if f.TimeRangeFilter != nil {
		if f.StartTime != nil && a.CreatedAt.Before(*f.StartTime) {
			return false
		}
		if f.EndTime != nil && !a.CreatedAt.Before(*f.EndTime) {
			return false
		}
	}
	return true
}

// InMemoryAlertStore implements alert.Repository
type InMemoryAlertStore struct {
	*InMemoryStore[*domainAlert.Alert]
}

func NewInMemoryAlertStore() *InMemoryAlertStore {
	return &InMemoryAlertStore{InMemoryStore: NewInMemoryStore[*domainAlert.Alert]()}
}

func (s *InMemoryAlertStore) Create(ctx context.Context, a *domainAlert.Alert) error {
	return s.InMemoryStore.Create(ctx, a.ID, a)
}

func (s *InMemoryAlertStore) GetLatestByEntity(ctx context.Context, tenantID, entityType, entityID string, metric types.AlertMetric) (*domainAlert.Alert, error) {
	items, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, a *domainAlert.Alert, _ interface{}) bool {
		return a.TenantID == tenantID && a.EntityType == entityType && a.EntityID == entityID && a.AlertMetric == metric
	}, nil)
	if len(items) == 0 {
		return nil, nil
	}
	return items[len(items)-1], nil
}

func (s *InMemoryAlertStore) ExistsForEntity(ctx context.Context, tenantID string, alertType types.AlertType, entityType, entityID string) (bool, error) {
	n, err := s.InMemoryStore.Count(ctx, nil, func(_ context.Context, a *domainAlert.Alert, _ interface{}) bool {
		return a.TenantID == tenantID && a.AlertType == alertType && a.EntityType == entityType && a.EntityID == entityID
	})
	return n > 0, err
}

func (s *InMemoryAlertStore) List(ctx context.Context, filter *types.AlertFilter) ([]*domainAlert.Alert, error) {
	if filter == nil {
		filter = types.NewAlertFilter()
	}
	return s.InMemoryStore.List(ctx, filter, alertFilterFn, nil)
}

func (s *InMemoryAlertStore) Count(ctx context.Context, filter *types.AlertFilter) (int, error) {
	if filter == nil {
		filter = types.NewAlertFilter()
	}
	return s.InMemoryStore.Count(ctx, filter, alertFilterFn)
}

func alertFilterFn(_ context.Context, a *domainAlert.Alert, f interface{}) bool {
	af, ok := f.(*types.AlertFilter)
	if !ok || af == nil {
		return true
	}
	if af.TenantID != "" && a.TenantID != af.TenantID {
		return false
	}
	if len(af.AlertTypes) > 0 && !lo.Contains(af.AlertTypes, a.AlertType) {
		return false
	}
	if len(af.EntityTypes) > 0 && !lo.Contains(af.EntityTypes, a.EntityType) {
		return false
	}
	if len(af.EntityIDs) > 0 && !lo.Contains(af.EntityIDs, a.EntityID) {
		return false
	}
	if len(af.AlertStates) > 0 && !lo.Contains(af.AlertStates, a.AlertState) {
		return false
	}
	if len(af.AlertMetrics) > 0 && !lo.Contains(af.AlertMetrics, a.AlertMetric) {
		return false
	}
	return true
}

func (s *InMemoryAlertStore) DeleteByTenant(ctx context.Context, tenantID string) error {
	items, _ := s.List(ctx, &types.AlertFilter{QueryFilter: types.NewNoLimitQueryFilter(), TenantID: tenantID})
	for _, a := range items {
		if err := s.InMemoryStore.Delete(ctx, a.ID); err != nil {
			return err
		}
	}
	return nil
}

// InMemoryProvisioningStore implements provisioning.Repository
type InMemoryProvisioningStore struct {
	*InMemoryStore[*provisioning.Run]
	mu sync.Mutex
}

func NewInMemoryProvisioningStore() *InMemoryProvisioningStore {
	return &InMemoryProvisioningStore{InMemoryStore: NewInMemoryStore[*provisioning.Run]()}
}

func (s *InMemoryProvisioningStore) GetOrCreate(ctx context.Context, tenantID string) (*provisioning.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run, err := s.Get(ctx, tenantID); err == nil {
		return run, nil
	}
	now := time.Now().UTC()
	run := &provisioning.Run{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROVISIONING_RUN),
		TenantID:  tenantID,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := s.InMemoryStore.Create(ctx, tenantID, run); err != nil {
		return nil, err
	}
	return copyRun(run), nil
}

func (s *InMemoryProvisioningStore) Get(ctx context.Context, tenantID string) (*provisioning.Run, error) {
	run, err := s.InMemoryStore.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return copyRun(run), nil
}

func (s *InMemoryProvisioningStore) Update(ctx context.Context, run *provisioning.Run) error {
	return s.InMemoryStore.Update(ctx, run.TenantID, copyRun(run))
}

func (s *InMemoryProvisioningStore) DeleteByTenant(ctx context.Context, tenantID string) error {
	if err := s.InMemoryStore.Delete(ctx, tenantID); err != nil && !ierr.IsNotFound(err) {
		return err
	}
	return nil
}

func copyRun(r *provisioning.Run) *provisioning.Run {
	c := *r
	c.CompletedSteps = append([]types.ProvisioningStep(nil), r.CompletedSteps...)
	return &c
}

// InMemoryUsageStore implements usage.Repository
type InMemoryUsageStore struct {
	mu   sync.Mutex
	rows map[string]*usage.Metrics
}

func NewInMemoryUsageStore() *InMemoryUsageStore {
	return &InMemoryUsageStore{rows: make(map[string]*usage.Metrics)}
}

func (s *InMemoryUsageStore) row(tenantID, period string) *usage.Metrics {
	key := tenantID + "/" + period
	m, ok := s.rows[key]
	if !ok {
		m = &usage.Metrics{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE),
			TenantID:     tenantID,
			Period:       period,
			FeatureUsage: map[string]int64{},
			CreatedAt:    time.Now().UTC(),
		}
		s.rows[key] = m
	}
	m.UpdatedAt = time.Now().UTC()
	return m
}

func (s *InMemoryUsageStore) Get(_ context.Context, tenantID, period string) (*usage.Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[tenantID+"/"+period]
	if !ok {
		return nil, ierr.NewError("usage metrics not found").Mark(ierr.ErrNotFound)
	}
	c := *m
	c.FeatureUsage = lo.Assign(map[string]int64{}, m.FeatureUsage)
	return &c, nil
}

func (s *InMemoryUsageStore) Increment(_ context.Context, tenantID, period string, counter types.UsageCounter, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.row(tenantID, period)
	switch counter {
	case types.UsageCounterEmployees:
		m.EmployeeCount = lo.Max([]int64{m.EmployeeCount + delta, 0})
	case types.UsageCounterUsers:
		m.UserCount = lo.Max([]int64{m.UserCount + delta, 0})
	case types.UsageCounterDepartments:
		m.DepartmentCount = lo.Max([]int64{m.DepartmentCount + delta, 0})
	case types.UsageCounterStorage:
		m.StorageBytes = lo.Max([]int64{m.StorageBytes + delta, 0})
	default:
		return ierr.NewError("unknown usage counter").Mark(ierr.ErrValidation)
	}
	return nil
}

func (s *InMemoryUsageStore) RecordAPIRequests(_ context.Context, tenantID, period, day string, today, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.row(tenantID, period)
	m.APIRequestsTotal += delta
	if m.APIRequestsDay != day {
		m.APIRequestsToday = 0
	}
	m.APIRequestsToday = lo.Max([]int64{m.APIRequestsToday, today})
	m.APIRequestsDay = day
	return nil
}

func (s *InMemoryUsageStore) IncrementFeature(_ context.Context, tenantID, period, feature string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.row(tenantID, period)
	m.FeatureUsage[feature] += delta
	return nil
}

func (s *InMemoryUsageStore) DeleteByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, m := range s.rows {
		if m.TenantID == tenantID {
			delete(s.rows, k)
		}
	}
	return nil
}
