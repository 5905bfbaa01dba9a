package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/domain/directory"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

// ExportService produces the data export of one tenant
type ExportService interface {
	// ExportTenant gathers every tenant-owned aggregate into one document.
	// Operator exports include the admin actions taken against the tenant.
	ExportTenant(ctx context.Context, tenantID string, actor lifecycle.Actor) (*dto.ExportResponse, error)
}

type exportService struct {
	ServiceParams
	lifecycle LifecycleService
	plans     PlanService
	usage     UsageService
}

func NewExportService(params ServiceParams) ExportService {
	return &exportService{
		ServiceParams: params,
		lifecycle:     NewLifecycleService(params),
		plans:         NewPlanService(params),
		usage:         NewUsageService(params),
	}
}

func (s *exportService) ExportTenant(ctx context.Context, tenantID string, actor lifecycle.Actor) (*dto.ExportResponse, error) {
	t, err := s.TenantRepo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t.Status == types.TenantStatusProvisioning || t.Status == types.TenantStatusDeleted {
		return nil, ierr.NewError("tenant cannot be exported").
			WithHintf("A %s tenant cannot be exported", t.Status).
			Mark(ierr.ErrInvalidOperation)
	}

	operator := actor.Type == types.ActorTypeOperator
	if !operator {
		if err := s.requireExportFeature(ctx, t.PlanName); err != nil {
			return nil, err
		}
	}

	exportID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXPORT)
	doc, err := s.collect(ctx, tenantID, exportID, operator)
	if err != nil {
		return nil, err
	}
	doc.Tenant = t

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode export").
			Mark(ierr.ErrSystem)
	}

	location, err := s.ExportSink.Store(ctx, tenantID, exportID, payload)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"export_id": exportID,
		"bytes":     len(payload),
		"stored":    location != nil,
	}
	if location != nil {
		metadata["key"] = location.Key
	}
	if _, err := s.lifecycle.RecordEvent(ctx, tenantID, types.LifecycleEventDataExported, "data export", metadata, actor); err != nil {
		return nil, err
	}
	if err := s.usage.RecordFeatureUse(ctx, tenantID, types.FeatureDataExport); err != nil {
		s.Logger.WithContext(ctx).Warnw("failed to record export usage", "tenant_id", tenantID, "error", err)
	}

	s.Logger.WithContext(ctx).Infow("tenant data exported",
		"tenant_id", tenantID,
		"export_id", exportID,
		"bytes", len(payload),
		"stored", location != nil,
	)

	resp := &dto.ExportResponse{ExportID: exportID, TenantID: tenantID, Location: location}
	if location == nil {
		resp.Data = doc
	}
	return resp, nil
}

func (s *exportService) requireExportFeature(ctx context.Context, planName string) error {
	p, err := s.plans.GetPlanByName(ctx, planName)
	if err != nil {
		return err
	}
	if p.HasFeature(types.FeatureDataExport) {
		return nil
	}

	details := map[string]any{"feature": types.FeatureDataExport}
	if upgrade, ok := s.plans.CheapestWithFeature(ctx, types.FeatureDataExport); ok {
		details["required_plan"] = upgrade.Name
	}
	return ierr.NewError("feature not available on plan").
		WithHint("Data export is not included in your plan").
		WithReportableDetails(details).
		Mark(ierr.ErrFeatureUnavailable)
}

func (s *exportService) collect(ctx context.Context, tenantID, exportID string, includeAdmin bool) (*dto.TenantExport, error) {
	scope := isolation.SystemScope(tenantID)
	doc := &dto.TenantExport{
		ExportID:    exportID,
		GeneratedAt: time.Now().UTC(),
	}

	sub, err := s.SubscriptionRepo.GetByTenant(ctx, tenantID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	doc.Subscription = sub

	if doc.Usage, err = s.usage.Current(ctx, tenantID); err != nil {
		return nil, err
	}
	if doc.LifecycleEvents, err = s.LifecycleEventRepo.ListByTenant(ctx, tenantID, types.NewNoLimitQueryFilter()); err != nil {
		return nil, err
	}

	alertFilter := types.NewAlertFilter()
	alertFilter.QueryFilter = types.NewNoLimitQueryFilter()
	alertFilter.TenantID = tenantID
	if doc.Alerts, err = s.AlertRepo.List(ctx, alertFilter); err != nil {
		return nil, err
	}

	if doc.Roles, err = s.Directory.Roles.ListTenant(ctx, scope, tenantID); err != nil {
		return nil, err
	}
	if doc.Modules, err = s.Directory.Modules.ListTenant(ctx, scope, tenantID); err != nil {
		return nil, err
	}
	if doc.Departments, err = s.Directory.Departments.ListTenant(ctx, scope, tenantID); err != nil {
		return nil, err
	}
	if doc.Positions, err = s.Directory.Positions.ListTenant(ctx, scope, tenantID); err != nil {
		return nil, err
	}
	if doc.RolePermissions, err = s.Directory.RolePermissions.ListTenant(ctx, scope, tenantID); err != nil {
		return nil, err
	}
	users, err := s.Directory.Users.ListTenant(ctx, scope, tenantID)
	if err != nil {
		return nil, err
	}
	doc.Users = lo.Map(users, func(u *directory.User, _ int) *dto.UserResponse {
		return dto.NewUserResponse(u)
	})

	if includeAdmin {
		auditFilter := types.NewDefaultAdminAuditFilter()
		auditFilter.QueryFilter = types.NewNoLimitQueryFilter()
		auditFilter.TargetTenantID = tenantID
		if doc.AdminActions, err = s.AdminAuditRepo.List(ctx, auditFilter); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
