package service

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/domain/alert"
	"github.com/flexprice/tenantcore/internal/domain/plan"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/domain/usage"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
)

// AlertService defines the interface for alert operations
type AlertService interface {
	// CheckQuotas compares a tenant's usage with the caps of its plan and
	// records an alert for every metric whose state changed
	CheckQuotas(ctx context.Context, t *domainTenant.Tenant, p *plan.Plan, m *usage.Metrics) error
	// RaiseOnce creates the alert unless one of the same type already exists
	// for the entity; it reports whether a row was written
	RaiseOnce(ctx context.Context, a *alert.Alert) (bool, error)
	ListAlerts(ctx context.Context, filter *types.AlertFilter) (*dto.ListAlertsResponse, error)
}

type alertService struct {
	ServiceParams
}

// NewAlertService creates a new alert service
func NewAlertService(params ServiceParams) AlertService {
	return &alertService{
		ServiceParams: params,
	}
}

// quotaCheck is one metric measured against one cap
type quotaCheck struct {
	metric types.AlertMetric
	usage  int64
	limit  int64
}

func (s *alertService) CheckQuotas(ctx context.Context, t *domainTenant.Tenant, p *plan.Plan, m *usage.Metrics) error {
	apiCallsToday := int64(0)
	if m.APIRequestsDay == types.UsageDay(time.Now()) {
		apiCallsToday = m.APIRequestsToday
	}

	checks := []quotaCheck{
		{metric: types.AlertMetricEmployees, usage: m.EmployeeCount, limit: int64(p.MaxEmployees)},
		{metric: types.AlertMetricStorage, usage: m.StorageBytes, limit: p.MaxStorageBytes},
		{metric: types.AlertMetricAPICalls, usage: apiCallsToday, limit: p.MaxAPICallsPerDay},
	}

	for _, check := range checks {
		state := s.determineAlertState(check.usage, check.limit)

		latestAlert, err := s.AlertRepo.GetLatestByEntity(ctx, t.ID, types.AlertEntityTenant, t.ID, check.metric)
		if err != nil {
			s.Logger.WithContext(ctx).Errorw("failed to get latest alert", "error", err, "tenant_id", t.ID, "metric", check.metric)
			return err
		}

		if err := s.handleAlertStateChange(ctx, t, p, latestAlert, state, check); err != nil {
			return err
		}
	}
	return nil
}

// determineAlertState places usage against limit; a zero limit is unlimited
func (s *alertService) determineAlertState(used, limit int64) types.AlertState {
	if limit <= 0 {
		return types.AlertStateOk
	}
	if used >= limit {
		return types.AlertStateInAlarm
	}
	if float64(used) >= s.Config.Lifecycle.WarningThreshold*float64(limit) {
		return types.AlertStateWarning
	}
	return types.AlertStateOk
}

// handleAlertStateChange writes a new alert only when the state differs
// from the latest one, so repeated ticks do not pile up rows
func (s *alertService) handleAlertStateChange(ctx context.Context, t *domainTenant.Tenant, p *plan.Plan, latestAlert *alert.Alert, newState types.AlertState, check quotaCheck) error {
	previousState := types.AlertStateOk
	if latestAlert != nil {
		previousState = latestAlert.AlertState
	}
	if previousState == newState {
		return nil
	}

	var alertType types.AlertType
	switch newState {
	case types.AlertStateInAlarm:
		alertType = types.AlertTypeQuotaExceeded
	case types.AlertStateWarning:
		alertType = types.AlertTypeQuotaWarning
	default:
		alertType = types.AlertTypeQuotaRecovered
	}

	info := map[string]interface{}{
		"usage":          check.usage,
		"limit":          check.limit,
		"plan":           p.Name,
		"previous_state": previousState,
		"threshold":      s.Config.Lifecycle.WarningThreshold,
	}
	if newState == types.AlertStateInAlarm {
		if suggested, ok := s.nextTierWithHigherCap(ctx, p, check.metric); ok {
			info["suggested_plan"] = suggested.Name
		}
	}

	newAlert := s.newAlert(ctx, t.ID, alertType, types.AlertEntityTenant, t.ID, check.metric, newState, info)
	if err := s.create(ctx, newAlert); err != nil {
		return err
	}

	s.Metrics.QuotaAlert(check.metric, newState)
	s.Logger.WithContext(ctx).Infow("quota alert state changed",
		"tenant_id", t.ID,
		"alert_metric", check.metric,
		"old_state", previousState,
		"new_state", newState,
		"usage", check.usage,
		"limit", check.limit,
	)
	return nil
}

func (s *alertService) nextTierWithHigherCap(ctx context.Context, current *plan.Plan, metric types.AlertMetric) (*plan.Plan, bool) {
	plans, err := s.PlanRepo.List(ctx)
	if err != nil {
		return nil, false
	}
	capOf := func(p *plan.Plan) int64 {
		switch metric {
		case types.AlertMetricEmployees:
			return int64(p.MaxEmployees)
		case types.AlertMetricStorage:
			return p.MaxStorageBytes
		case types.AlertMetricAPICalls:
			return p.MaxAPICallsPerDay
		}
		return 0
	}
	currentCap := capOf(current)
	candidates := lo.Filter(plans, func(p *plan.Plan, _ int) bool {
		c := capOf(p)
		return p.Active && p.Tier > current.Tier && (c == 0 || c > currentCap)
	})
	if len(candidates) == 0 {
		return nil, false
	}
	return lo.MinBy(candidates, func(a, b *plan.Plan) bool { return a.Tier < b.Tier }), true
}

func (s *alertService) RaiseOnce(ctx context.Context, a *alert.Alert) (bool, error) {
	exists, err := s.AlertRepo.ExistsForEntity(ctx, a.TenantID, a.AlertType, a.EntityType, a.EntityID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.create(ctx, a); err != nil {
		return false, err
	}
	return true, nil
}

func (s *alertService) ListAlerts(ctx context.Context, filter *types.AlertFilter) (*dto.ListAlertsResponse, error) {
	if filter == nil {
		filter = types.NewAlertFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	alerts, err := s.AlertRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.AlertRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(alerts, func(a *alert.Alert, _ int) *dto.AlertResponse {
		return dto.NewAlertResponse(a)
	})
	return types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset()), nil
}

func (s *alertService) newAlert(ctx context.Context, tenantID string, alertType types.AlertType, entityType, entityID string, metric types.AlertMetric, state types.AlertState, info map[string]interface{}) *alert.Alert {
	base := types.GetDefaultBaseModel(ctx)
	base.TenantID = tenantID
	return &alert.Alert{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ALERT),
		AlertType:   alertType,
		EntityType:  entityType,
		EntityID:    entityID,
		AlertMetric: metric,
		AlertState:  state,
		AlertInfo:   info,
		BaseModel:   base,
	}
}

// create validates and stores the alert, publishing it after commit
func (s *alertService) create(ctx context.Context, a *alert.Alert) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.AlertRepo.Create(ctx, a); err != nil {
		return err
	}

	s.DB.AfterCommit(ctx, func() {
		if s.EventPublisher == nil {
			return
		}
		if err := s.EventPublisher.PublishAlert(ctx, a); err != nil {
			// the alert row is already durable
			s.Logger.WithContext(ctx).Warnw("failed to publish alert", "alert_id", a.ID, "error", err)
		}
	})
	return nil
}

// NewPaymentFailureAlert builds the alert raised for a failed payment
// webhook; the webhook event is the entity so redelivery is deduplicated
func NewPaymentFailureAlert(ctx context.Context, tenantID, webhookEventID string, info map[string]interface{}) *alert.Alert {
	base := types.GetDefaultBaseModel(ctx)
	base.TenantID = tenantID
	return &alert.Alert{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ALERT),
		AlertType:   types.AlertTypePaymentFailure,
		EntityType:  types.AlertEntityWebhookEvent,
		EntityID:    webhookEventID,
		AlertMetric: types.AlertMetricPayment,
		AlertState:  types.AlertStateInAlarm,
		AlertInfo:   info,
		BaseModel:   base,
	}
}

// NewProvisioningFailureAlert builds the alert raised when a tenant's
// provisioning fails
func NewProvisioningFailureAlert(ctx context.Context, tenantID string, info map[string]interface{}) *alert.Alert {
	base := types.GetDefaultBaseModel(ctx)
	base.TenantID = tenantID
	return &alert.Alert{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ALERT),
		AlertType:   types.AlertTypeProvisioningFailed,
		EntityType:  types.AlertEntityTenant,
		EntityID:    tenantID,
		AlertMetric: types.AlertMetricProvisioned,
		AlertState:  types.AlertStateInAlarm,
		AlertInfo:   info,
		BaseModel:   base,
	}
}
