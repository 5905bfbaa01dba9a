package v1

import (
	"net/http"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	service service.AuditService
	log     *logger.Logger
}

func NewAuditHandler(service service.AuditService, log *logger.Logger) *AuditHandler {
	return &AuditHandler{service: service, log: log}
}

// @Summary List admin audit records
// @Tags Platform
// @Produce json
// @Security ApiKeyAuth
// @Param filter query types.AdminAuditFilter false "Filter"
// @Success 200 {object} dto.ListAdminAuditsResponse
// @Router /platform/audits [get]
func (h *AuditHandler) ListAudits(c *gin.Context) {
	filter := types.NewDefaultAdminAuditFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListAudits(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
