package cron

import (
	"net/http"
	"time"

	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/gin-gonic/gin"
)

// LifecycleCronHandler runs one pass of the background jobs on demand
type LifecycleCronHandler struct {
	monitorService      service.MonitorService
	provisioningService service.ProvisioningService
	logger              *logger.Logger
}

func NewLifecycleCronHandler(
	monitorService service.MonitorService,
	provisioningService service.ProvisioningService,
	logger *logger.Logger,
) *LifecycleCronHandler {
	return &LifecycleCronHandler{
		monitorService:      monitorService,
		provisioningService: provisioningService,
		logger:              logger,
	}
}

// RunMonitor runs one lifecycle monitor tick
func (h *LifecycleCronHandler) RunMonitor(c *gin.Context) {
	h.logger.Infow("starting lifecycle monitor cron job", "time", time.Now().UTC().Format(time.RFC3339))

	result, err := h.monitorService.RunOnce(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to run lifecycle monitor", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed lifecycle monitor cron job", "result", result)
	c.JSON(http.StatusOK, result)
}

// RunProvisioning provisions one batch of pending tenants
func (h *LifecycleCronHandler) RunProvisioning(c *gin.Context) {
	h.logger.Infow("starting provisioning cron job", "time", time.Now().UTC().Format(time.RFC3339))

	result, err := h.provisioningService.ProcessBatch(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to run provisioning batch", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed provisioning cron job", "result", result)
	c.JSON(http.StatusOK, result)
}
