package v1

import (
	"net/http"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/rest/middleware"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
)

type UsageHandler struct {
	usageService  service.UsageService
	alertService  service.AlertService
	exportService service.ExportService
	log           *logger.Logger
}

func NewUsageHandler(
	usageService service.UsageService,
	alertService service.AlertService,
	exportService service.ExportService,
	log *logger.Logger,
) *UsageHandler {
	return &UsageHandler{
		usageService:  usageService,
		alertService:  alertService,
		exportService: exportService,
		log:           log,
	}
}

// @Summary Current usage of the caller's tenant
// @Tags Usage
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.UsageResponse
// @Router /usage [get]
func (h *UsageHandler) GetUsage(c *gin.Context) {
	scope := middleware.Scope(c)
	if err := scope.RequireTenant(); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.usageService.GetUsage(c.Request.Context(), scope.TenantID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Alerts of the caller's tenant
// @Tags Usage
// @Produce json
// @Security ApiKeyAuth
// @Param filter query types.AlertFilter false "Filter"
// @Success 200 {object} dto.ListAlertsResponse
// @Router /alerts [get]
func (h *UsageHandler) ListAlerts(c *gin.Context) {
	scope := middleware.Scope(c)
	if err := scope.RequireTenant(); err != nil {
		c.Error(err)
		return
	}

	filter := types.NewAlertFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	// the query string never widens the tenant
	filter.TenantID = scope.TenantID

	resp, err := h.alertService.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Alerts of any tenant
// @Tags Admin Tenants
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Tenant ID"
// @Success 200 {object} dto.ListAlertsResponse
// @Router /admin/tenants/{id}/alerts [get]
func (h *UsageHandler) ListTenantAlerts(c *gin.Context) {
	filter := types.NewAlertFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	filter.TenantID = c.Param("id")

	resp, err := h.alertService.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Export the caller's tenant data
// @Tags Usage
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.ExportResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Router /export [post]
func (h *UsageHandler) Export(c *gin.Context) {
	scope := middleware.Scope(c)
	if err := scope.RequireTenant(); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.exportService.ExportTenant(c.Request.Context(), scope.TenantID, actorFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
