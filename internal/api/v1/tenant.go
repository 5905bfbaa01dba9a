package v1

import (
	"net/http"

	"github.com/flexprice/tenantcore/internal/api/dto"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
)

type TenantHandler struct {
	tenantService       service.TenantService
	lifecycleService    service.LifecycleService
	provisioningService service.ProvisioningService
	exportService       service.ExportService
	log                 *logger.Logger
}

func NewTenantHandler(
	tenantService service.TenantService,
	lifecycleService service.LifecycleService,
	provisioningService service.ProvisioningService,
	exportService service.ExportService,
	log *logger.Logger,
) *TenantHandler {
	return &TenantHandler{
		tenantService:       tenantService,
		lifecycleService:    lifecycleService,
		provisioningService: provisioningService,
		exportService:       exportService,
		log:                 log,
	}
}

// @Summary Sign up a new tenant
// @Description Creates the tenant in provisioning and returns without waiting for provisioning to finish
// @Tags Tenants
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Idempotency key, overrides the body field"
// @Param request body dto.SignupRequest true "Signup request"
// @Success 202 {object} dto.SignupResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /signup [post]
func (h *TenantHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if key := c.GetHeader(types.HeaderIdempotencyKey); key != "" {
		req.IdempotencyKey = key
	}

	resp, err := h.tenantService.Signup(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusAccepted
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// @Summary Get provisioning status of a tenant
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} dto.TenantStatusResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /signup/{id}/status [get]
func (h *TenantHandler) GetStatus(c *gin.Context) {
	resp, err := h.tenantService.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List tenants
// @Tags Admin Tenants
// @Produce json
// @Security ApiKeyAuth
// @Param filter query types.TenantFilter false "Filter"
// @Success 200 {object} dto.ListTenantsResponse
// @Router /admin/tenants [get]
func (h *TenantHandler) ListTenants(c *gin.Context) {
	filter := types.NewTenantFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.tenantService.ListTenants(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a tenant
// @Tags Admin Tenants
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Tenant ID"
// @Success 200 {object} dto.TenantResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /admin/tenants/{id} [get]
func (h *TenantHandler) GetTenant(c *gin.Context) {
	resp, err := h.tenantService.GetTenant(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Activate a tenant
// @Tags Admin Tenants
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Tenant ID"
// @Param request body dto.ActivateTenantRequest false "Reason"
// @Success 200 {object} dto.TenantResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /admin/tenants/{id}/activate [post]
func (h *TenantHandler) Activate(c *gin.Context) {
	var req dto.ActivateTenantRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	t, err := h.lifecycleService.Activate(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	h.respondTenant(c, t, err)
}

// @Summary Suspend a tenant
// @Tags Admin Tenants
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Tenant ID"
// @Param request body dto.SuspendTenantRequest true "Reason and optional grace period"
// @Success 200 {object} dto.TenantResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /admin/tenants/{id}/suspend [post]
func (h *TenantHandler) Suspend(c *gin.Context) {
	var req dto.SuspendTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	t, err := h.lifecycleService.Suspend(c.Request.Context(), c.Param("id"), req.Reason, req.GracePeriod(), actorFrom(c))
	h.respondTenant(c, t, err)
}

// @Summary Resume a suspended tenant
// @Tags Admin Tenants
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Tenant ID"
// @Param request body dto.ResumeTenantRequest false "Reason"
// @Success 200 {object} dto.TenantResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /admin/tenants/{id}/resume [post]
func (h *TenantHandler) Resume(c *gin.Context) {
	var req dto.ResumeTenantRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	t, err := h.lifecycleService.Resume(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	h.respondTenant(c, t, err)
}

// @Summary Cancel a tenant
// @Tags Admin Tenants
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Tenant ID"
// @Param request body dto.CancelTenantRequest true "Cancellation"
// @Success 200 {object} dto.TenantResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /admin/tenants/{id}/cancel [post]
func (h *TenantHandler) Cancel(c *gin.Context) {
	var req dto.CancelTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	t, err := h.lifecycleService.Cancel(c.Request.Context(), c.Param("id"), service.CancelRequest{
		Reason:           req.Reason,
		ScheduleDeletion: req.ScheduleDeletion,
		Retention:        req.Retention(),
	}, actorFrom(c))
	h.respondTenant(c, t, err)
}

// @Summary Change the plan of a tenant
// @Tags Admin Tenants
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Tenant ID"
// @Param request body dto.ChangePlanRequest true "Target plan"
// @Success 200 {object} dto.TenantResponse
// @Router /admin/tenants/{id}/plan [put]
func (h *TenantHandler) ChangePlan(c *gin.Context) {
	var req dto.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.tenantService.ChangePlan(c.Request.Context(), c.Param("id"), req, actorFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Retry failed provisioning
// @Description Moves the tenant back to provisioning and resumes from the failed step
// @Tags Admin Tenants
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Tenant ID"
// @Success 200 {object} provisioning.Run
// @Failure 409 {object} ierr.ErrorResponse
// @Router /admin/tenants/{id}/provisioning/retry [post]
func (h *TenantHandler) RetryProvisioning(c *gin.Context) {
	run, err := h.provisioningService.Retry(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// @Summary List lifecycle events of a tenant
// @Tags Admin Tenants
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Tenant ID"
// @Param filter query types.QueryFilter false "Pagination"
// @Success 200 {object} dto.ListLifecycleEventsResponse
// @Router /admin/tenants/{id}/events [get]
func (h *TenantHandler) ListEvents(c *gin.Context) {
	filter := types.NewDefaultQueryFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.lifecycleService.ListEvents(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Export all data of a tenant
// @Tags Admin Tenants
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Tenant ID"
// @Success 200 {object} dto.ExportResponse
// @Router /admin/tenants/{id}/export [post]
func (h *TenantHandler) Export(c *gin.Context) {
	resp, err := h.exportService.ExportTenant(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TenantHandler) respondTenant(c *gin.Context, t *domainTenant.Tenant, err error) {
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, &dto.TenantResponse{Tenant: t})
}

// bindOptionalJSON accepts an empty body for requests whose fields are all optional
func bindOptionalJSON(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return false
	}
	return true
}
