package v1

import (
	"io"
	"net/http"

	"github.com/flexprice/tenantcore/internal/api/dto"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds what a provider may post
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	service service.BillingWebhookService
	log     *logger.Logger
}

func NewWebhookHandler(service service.BillingWebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, log: log}
}

// @Summary Receive a billing provider webhook
// @Description Always acknowledges; processing failures are stored on the webhook event
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param provider path string true "Billing provider"
// @Success 200 {object} dto.WebhookAckResponse
// @Router /webhooks/billing/{provider} [post]
func (h *WebhookHandler) HandleBillingWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	provider := types.BillingProvider(c.Param("provider"))

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.log.WithContext(ctx).Errorw("failed to read webhook body", "provider", provider, "error", err)
		c.JSON(http.StatusOK, dto.WebhookAckResponse{Received: true})
		return
	}

	signature := c.GetHeader(types.HeaderWebhookSig)
	if provider == types.BillingProviderStripe {
		signature = c.GetHeader(types.HeaderStripeSig)
	}

	event, err := h.service.HandleWebhook(ctx, provider, payload, signature)
	if err != nil {
		h.log.WithContext(ctx).Errorw("failed to record webhook", "provider", provider, "error", err)
	} else if event != nil && event.Error != "" {
		h.log.WithContext(ctx).Warnw("webhook recorded with processing error",
			"provider", provider,
			"webhook_event_id", event.ID,
			"error", event.Error,
		)
	}

	c.JSON(http.StatusOK, dto.WebhookAckResponse{Received: true})
}

// @Summary List webhook events
// @Tags Admin Webhooks
// @Produce json
// @Security ApiKeyAuth
// @Param filter query types.WebhookEventFilter false "Filter"
// @Success 200 {object} dto.ListWebhookEventsResponse
// @Router /admin/webhooks [get]
func (h *WebhookHandler) ListWebhookEvents(c *gin.Context) {
	filter := types.NewWebhookEventFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListWebhookEvents(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a webhook event
// @Tags Admin Webhooks
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Webhook event ID"
// @Success 200 {object} dto.WebhookEventResponse
// @Router /admin/webhooks/{id} [get]
func (h *WebhookHandler) GetWebhookEvent(c *gin.Context) {
	resp, err := h.service.GetWebhookEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Reprocess a stored webhook event
// @Tags Admin Webhooks
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Webhook event ID"
// @Success 200 {object} dto.WebhookEventResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /admin/webhooks/{id}/reprocess [post]
func (h *WebhookHandler) Reprocess(c *gin.Context) {
	resp, err := h.service.Reprocess(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
