package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/tenantcore/internal/api/dto"
	"github.com/flexprice/tenantcore/internal/auth"
	"github.com/flexprice/tenantcore/internal/domain/directory"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	"github.com/flexprice/tenantcore/internal/domain/plan"
	"github.com/flexprice/tenantcore/internal/domain/provisioning"
	"github.com/flexprice/tenantcore/internal/domain/subscription"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/email"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

// ProvisioningService runs the setup pipeline of new tenants
type ProvisioningService interface {
	// Provision runs every step not yet completed for a tenant in
	// Provisioning and activates it once the last step succeeds
	Provision(ctx context.Context, tenantID string) (*provisioning.Run, error)
	// Retry moves a failed tenant back to Provisioning and resumes the
	// pipeline from the first incomplete step
	Retry(ctx context.Context, tenantID string, actor lifecycle.Actor) (*provisioning.Run, error)
	// ProcessBatch provisions up to the configured batch of pending tenants
	ProcessBatch(ctx context.Context) (*dto.ProvisioningBatchResult, error)
}

type provisioningService struct {
	ServiceParams
	lifecycle LifecycleService
	plans     PlanService
	alerts    AlertService
}

func NewProvisioningService(params ServiceParams) ProvisioningService {
	return &provisioningService{
		ServiceParams: params,
		lifecycle:     NewLifecycleService(params),
		plans:         NewPlanService(params),
		alerts:        NewAlertService(params),
	}
}

type provisioningStepFunc func(ctx context.Context, scope isolation.Scope, t *domainTenant.Tenant) error

func (s *provisioningService) steps() map[types.ProvisioningStep]provisioningStepFunc {
	return map[types.ProvisioningStep]provisioningStepFunc{
		types.ProvisioningStepSubscription:    s.ensureSubscription,
		types.ProvisioningStepRoles:           s.ensureRoles,
		types.ProvisioningStepModules:         s.ensureModules,
		types.ProvisioningStepOrgStructure:    s.ensureOrgStructure,
		types.ProvisioningStepRolePermissions: s.ensureRolePermissions,
		types.ProvisioningStepAdminUser:       s.ensureAdminUser,
		types.ProvisioningStepAdminRole:       s.ensureAdminRole,
		types.ProvisioningStepWelcome:         s.sendWelcome,
	}
}

func (s *provisioningService) Provision(ctx context.Context, tenantID string) (*provisioning.Run, error) {
	t, err := s.TenantRepo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t.Status != types.TenantStatusProvisioning {
		return nil, ierr.NewError("tenant is not provisioning").
			WithHintf("Tenant is %s", t.Status).
			WithReportableDetails(map[string]any{"tenant_id": tenantID, "status": t.Status}).
			Mark(ierr.ErrInvalidOperation)
	}

	run, err := s.ProvisioningRepo.GetOrCreate(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	run.Attempts++
	run.UpdatedAt = time.Now().UTC()
	if err := s.ProvisioningRepo.Update(ctx, run); err != nil {
		return nil, err
	}

	log := s.Logger.WithContext(ctx).WithTenant(tenantID)
	log.Infow("provisioning tenant", "attempt", run.Attempts, "completed_steps", run.CompletedSteps)

	scope := isolation.SystemScope(tenantID)
	steps := s.steps()
	actor := lifecycle.Actor{Type: types.ActorTypeWorker}

	for _, step := range types.ProvisioningSteps {
		if run.IsCompleted(step) {
			continue
		}

		stepErr := s.runStep(ctx, step, func() error {
			return steps[step](ctx, scope, t)
		})
		if stepErr != nil {
			return run, s.fail(ctx, run, step, stepErr, actor)
		}

		run.MarkCompleted(step)
		run.UpdatedAt = time.Now().UTC()
		if err := s.ProvisioningRepo.Update(ctx, run); err != nil {
			return run, err
		}
		s.Metrics.ProvisioningStep(step, "completed")
		log.Debugw("provisioning step completed", "step", step)
	}

	now := time.Now().UTC()
	run.CompletedAt = &now
	run.UpdatedAt = now
	if err := s.ProvisioningRepo.Update(ctx, run); err != nil {
		return run, err
	}

	if _, err := s.lifecycle.CompleteProvisioning(ctx, tenantID, actor); err != nil {
		// a concurrent run may have finished first
		if current, getErr := s.TenantRepo.Get(ctx, tenantID); getErr == nil &&
			current.Status == types.TenantStatusActive &&
			(ierr.IsInvalidOperation(err) || ierr.IsVersionConflict(err)) {
			log.Infow("tenant already activated by a concurrent run")
			return run, nil
		}
		return run, err
	}

	log.Infow("tenant provisioned", "attempts", run.Attempts)
	return run, nil
}

// runStep retries transient failures of one step; validation problems are
// not retried
func (s *provisioningService) runStep(ctx context.Context, step types.ProvisioningStep, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.Config.Provisioning.StepRetries),
		ctx,
	)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if ierr.IsValidation(err) || ierr.IsInvalidOperation(err) || ierr.IsBoundaryViolation(err) {
			return backoff.Permanent(err)
		}
		s.Logger.WithContext(ctx).Warnw("provisioning step failed, retrying", "step", step, "error", err)
		return err
	}, policy)
}

func (s *provisioningService) fail(ctx context.Context, run *provisioning.Run, step types.ProvisioningStep, stepErr error, actor lifecycle.Actor) error {
	log := s.Logger.WithContext(ctx)

	run.FailedStep = step
	run.LastError = stepErr.Error()
	run.UpdatedAt = time.Now().UTC()
	if err := s.ProvisioningRepo.Update(ctx, run); err != nil {
		log.Errorw("failed to record provisioning failure", "tenant_id", run.TenantID, "error", err)
	}
	s.Metrics.ProvisioningStep(step, "failed")

	reason := fmt.Sprintf("step %s failed: %s", step, stepErr.Error())
	metadata := map[string]any{
		"failed_step":     step,
		"completed_steps": run.CompletedSteps,
		"attempt":         run.Attempts,
	}
	if _, err := s.lifecycle.FailProvisioning(ctx, run.TenantID, reason, metadata, actor); err != nil {
		log.Errorw("failed to mark tenant provisioning failed", "tenant_id", run.TenantID, "error", err)
	}

	// one alert per tenant; the failed step is in the info
	a := NewProvisioningFailureAlert(ctx, run.TenantID, map[string]interface{}{
		"failed_step": step,
		"error":       stepErr.Error(),
		"attempt":     run.Attempts,
	})
	if _, err := s.alerts.RaiseOnce(ctx, a); err != nil {
		log.Errorw("failed to raise provisioning alert", "tenant_id", run.TenantID, "error", err)
	}

	log.Errorw("tenant provisioning failed",
		"tenant_id", run.TenantID,
		"step", step,
		"error", stepErr,
	)
	return ierr.WithError(stepErr).
		WithHintf("Provisioning failed at step %s", step).
		WithReportableDetails(map[string]any{
			"tenant_id":   run.TenantID,
			"failed_step": step,
		}).
		Mark(ierr.ErrProvisioningFailed)
}

func (s *provisioningService) Retry(ctx context.Context, tenantID string, actor lifecycle.Actor) (*provisioning.Run, error) {
	if _, err := s.lifecycle.RetryProvisioning(ctx, tenantID, actor); err != nil {
		return nil, err
	}
	return s.Provision(ctx, tenantID)
}

func (s *provisioningService) ProcessBatch(ctx context.Context) (*dto.ProvisioningBatchResult, error) {
	filter := types.NewTenantFilter()
	filter.Statuses = []types.TenantStatus{types.TenantStatusProvisioning}
	filter.QueryFilter.Limit = lo.ToPtr(s.Config.Provisioning.BatchSize)

	tenants, err := s.TenantRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &dto.ProvisioningBatchResult{Claimed: len(tenants)}
	if len(tenants) == 0 {
		return result, nil
	}

	outcomes := make([]bool, len(tenants))
	p := pool.New().WithMaxGoroutines(lo.Max([]int{1, s.Config.Lifecycle.ScanConcurrency}))
	for i, t := range tenants {
		p.Go(func() {
			if _, err := s.Provision(ctx, t.ID); err != nil {
				s.Logger.WithContext(ctx).Errorw("provisioning run failed",
					"tenant_id", t.ID,
					"error", err,
				)
				return
			}
			outcomes[i] = true
		})
	}
	p.Wait()

	result.Succeeded = lo.Count(outcomes, true)
	result.Failed = result.Claimed - result.Succeeded
	return result, nil
}

// ensureSubscription creates the tenant's subscription on the requested
// plan, or the lowest tier one, and copies the plan caps onto the tenant
func (s *provisioningService) ensureSubscription(ctx context.Context, _ isolation.Scope, t *domainTenant.Tenant) error {
	if _, err := s.SubscriptionRepo.GetByTenant(ctx, t.ID); err == nil {
		return nil
	} else if !ierr.IsNotFound(err) {
		return err
	}

	var p *plan.Plan
	var err error
	if t.RequestedPlan != "" {
		p, err = s.plans.GetPlanByName(ctx, t.RequestedPlan)
	} else {
		p, err = s.plans.DefaultPlan(ctx)
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	periodEnd := now.AddDate(0, 1, 0)
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		TenantID:           t.ID,
		PlanID:             p.ID,
		PlanName:           p.Name,
		Provider:           lo.CoalesceOrEmpty(t.BillingProvider, types.BillingProviderInternal),
		ExternalCustomerID: t.BillingCustomerID,
		Status:             types.SubscriptionStatusActive,
		BillingPeriod:      types.BillingPeriodMonthly,
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &periodEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if t.TrialRequested {
		days := p.TrialDays
		if days <= 0 {
			days = s.Config.Billing.DefaultTrialDays
		}
		trialEnd := now.AddDate(0, 0, days)
		sub.Status = types.SubscriptionStatusTrialing
		sub.TrialStart = &now
		sub.TrialEnd = &trialEnd
		sub.CurrentPeriodEnd = &trialEnd
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.SubscriptionRepo.Create(ctx, sub); err != nil {
			return err
		}

		current, err := s.TenantRepo.Get(ctx, t.ID)
		if err != nil {
			return err
		}
		current.PlanName = p.Name
		current.MaxEmployees = p.MaxEmployees
		current.UpdatedAt = now
		current.UpdatedBy = types.DefaultUserID
		if err := s.TenantRepo.Update(ctx, current); err != nil {
			return err
		}
		t.PlanName = current.PlanName
		t.MaxEmployees = current.MaxEmployees
		return nil
	})
}

func (s *provisioningService) ensureRoles(ctx context.Context, scope isolation.Scope, _ *domainTenant.Tenant) error {
	missing, err := missingByKey(ctx, scope, s.Directory.Roles, directory.DefaultRoles,
		func(r directory.RoleSeed) string { return r.Name },
		func(r directory.RoleSeed) *directory.Role {
			return &directory.Role{
				ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ROLE),
				Name:        r.Name,
				Description: r.Description,
				IsSystem:    true,
				BaseModel:   types.GetDefaultBaseModel(ctx),
			}
		})
	if err != nil || len(missing) == 0 {
		return err
	}
	return s.Directory.Roles.CreateBatch(ctx, scope, missing)
}

func (s *provisioningService) ensureModules(ctx context.Context, scope isolation.Scope, _ *domainTenant.Tenant) error {
	order := make(map[string]int, len(directory.DefaultModules))
	for i, m := range directory.DefaultModules {
		order[m.Code] = i + 1
	}
	missing, err := missingByKey(ctx, scope, s.Directory.Modules, directory.DefaultModules,
		func(m directory.ModuleSeed) string { return m.Code },
		func(m directory.ModuleSeed) *directory.Module {
			return &directory.Module{
				ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MODULE),
				Code:      m.Code,
				Name:      m.Name,
				Path:      m.Path,
				SortOrder: order[m.Code],
				BaseModel: types.GetDefaultBaseModel(ctx),
			}
		})
	if err != nil || len(missing) == 0 {
		return err
	}
	return s.Directory.Modules.CreateBatch(ctx, scope, missing)
}

func (s *provisioningService) ensureOrgStructure(ctx context.Context, scope isolation.Scope, t *domainTenant.Tenant) error {
	departments, err := missingByKey(ctx, scope, s.Directory.Departments, directory.DefaultDepartments,
		func(d directory.DepartmentSeed) string { return d.Code },
		func(d directory.DepartmentSeed) *directory.Department {
			return &directory.Department{
				ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DEPARTMENT),
				Code:      d.Code,
				Name:      d.Name,
				BaseModel: types.GetDefaultBaseModel(ctx),
			}
		})
	if err != nil {
		return err
	}
	positions, err := missingByKey(ctx, scope, s.Directory.Positions, directory.DefaultPositions,
		func(p directory.PositionSeed) string { return p.Code },
		func(p directory.PositionSeed) *directory.Position {
			return &directory.Position{
				ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_POSITION),
				Code:           p.Code,
				Title:          p.Title,
				DepartmentCode: p.DepartmentCode,
				BaseModel:      types.GetDefaultBaseModel(ctx),
			}
		})
	if err != nil {
		return err
	}
	if len(departments) == 0 && len(positions) == 0 {
		return nil
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		if len(departments) > 0 {
			if err := s.Directory.Departments.CreateBatch(ctx, scope, departments); err != nil {
				return err
			}
			if err := s.UsageRepo.Increment(ctx, t.ID, types.UsagePeriod(time.Now()),
				types.UsageCounterDepartments, int64(len(departments))); err != nil {
				return err
			}
		}
		if len(positions) > 0 {
			return s.Directory.Positions.CreateBatch(ctx, scope, positions)
		}
		return nil
	})
}

func (s *provisioningService) ensureRolePermissions(ctx context.Context, scope isolation.Scope, _ *domainTenant.Tenant) error {
	type grant struct{ role, module string }
	grants := make([]grant, 0, len(directory.DefaultRoles)*len(directory.DefaultModules))
	for _, r := range directory.DefaultRoles {
		for _, m := range directory.DefaultModules {
			grants = append(grants, grant{role: r.Name, module: m.Code})
		}
	}

	missing, err := missingByKey(ctx, scope, s.Directory.RolePermissions, grants,
		func(g grant) string { return g.role + ":" + g.module },
		func(g grant) *directory.RolePermission {
			return &directory.RolePermission{
				ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PERMISSION),
				RoleName:   g.role,
				ModuleCode: g.module,
				Level:      directory.DefaultPermissionLevel(g.role, g.module),
				BaseModel:  types.GetDefaultBaseModel(ctx),
			}
		})
	if err != nil || len(missing) == 0 {
		return err
	}
	return s.Directory.RolePermissions.CreateBatch(ctx, scope, missing)
}

// ensureAdminUser creates the invited admin account with a setup token. The
// plaintext token is not kept; the welcome step issues the one it mails.
func (s *provisioningService) ensureAdminUser(ctx context.Context, scope isolation.Scope, t *domainTenant.Tenant) error {
	if _, err := s.Directory.Users.FindByKey(ctx, scope, t.AdminEmail); err == nil {
		return nil
	} else if !ierr.IsNotFound(err) {
		return err
	}

	_, hash, err := auth.NewSetupToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(s.Config.Provisioning.SetupTokenTTL)

	user := &directory.User{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USER),
		Email:               t.AdminEmail,
		Name:                t.AdminName,
		Status:              types.UserStatusInvited,
		Roles:               []string{},
		SetupTokenHash:      hash,
		SetupTokenExpiresAt: &expiresAt,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.Directory.Users.Create(ctx, scope, user); err != nil {
			return err
		}
		return s.UsageRepo.Increment(ctx, t.ID, types.UsagePeriod(time.Now()), types.UsageCounterUsers, 1)
	})
}

func (s *provisioningService) ensureAdminRole(ctx context.Context, scope isolation.Scope, t *domainTenant.Tenant) error {
	user, err := s.Directory.Users.FindByKey(ctx, scope, t.AdminEmail)
	if err != nil {
		return err
	}
	if lo.Contains(user.Roles, types.RoleAdmin) {
		return nil
	}
	user.Roles = append(user.Roles, types.RoleAdmin)
	user.UpdatedAt = time.Now().UTC()
	return s.Directory.Users.Update(ctx, scope, user)
}

// sendWelcome rotates the setup token and mails it to the admin. A user who
// already set a password gets the welcome without a token.
func (s *provisioningService) sendWelcome(ctx context.Context, scope isolation.Scope, t *domainTenant.Tenant) error {
	user, err := s.Directory.Users.FindByKey(ctx, scope, t.AdminEmail)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		"admin_name":  lo.CoalesceOrEmpty(user.Name, user.Email),
		"tenant_name": t.Name,
		"plan_name":   t.PlanName,
	}

	if user.Status == types.UserStatusInvited {
		token, hash, err := auth.NewSetupToken()
		if err != nil {
			return err
		}
		expiresAt := time.Now().UTC().Add(s.Config.Provisioning.SetupTokenTTL)
		user.SetupTokenHash = hash
		user.SetupTokenExpiresAt = &expiresAt
		user.UpdatedAt = time.Now().UTC()
		if err := s.Directory.Users.Update(ctx, scope, user); err != nil {
			return err
		}
		data["setup_url"] = fmt.Sprintf(s.Config.Provisioning.SetupURLFormat, token)
		data["setup_expires_at"] = expiresAt.Format(time.RFC1123)
	}

	resp, err := s.Email.SendEmailWithTemplate(ctx, email.SendEmailWithTemplateRequest{
		ToAddress:    user.Email,
		Subject:      fmt.Sprintf("Welcome to %s", t.Name),
		TemplatePath: email.TemplateWelcome,
		Data:         data,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		s.Logger.WithContext(ctx).Warnw("welcome email not sent", "tenant_id", t.ID, "reason", resp.Error)
	}
	return nil
}

// missingByKey returns the seeds, built into entities, whose natural key is
// not yet present in the scope's tenant
func missingByKey[S any, T directory.Record](
	ctx context.Context,
	scope isolation.Scope,
	gate *isolation.Gate[T],
	seeds []S,
	key func(S) string,
	build func(S) T,
) ([]T, error) {
	missing := make([]T, 0, len(seeds))
	for _, seed := range seeds {
		_, err := gate.FindByKey(ctx, scope, key(seed))
		if err == nil {
			continue
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		missing = append(missing, build(seed))
	}
	return missing, nil
}
