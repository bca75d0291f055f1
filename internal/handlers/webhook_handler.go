package handlers

import (
	"net/http"

	"vpnbot_backend/internal/logger"
	"vpnbot_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	*BaseHandler
	subscriptions services.SubscriptionService
}

func NewWebhookHandler(base *BaseHandler, subscriptions services.SubscriptionService) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:   base,
		subscriptions: subscriptions,
	}
}

func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/payment/webhook", h.HandleWebhook)
}

// webhookEvent - формат уведомления YooKassa
type webhookEvent struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"object"`
}

// HandleWebhook принимает события платежного шлюза.
// Шлюз ретраит все, кроме 2xx, поэтому на любое разобранное событие
// отвечаем 200, даже если обработка не удалась. 400 только на битый payload.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	var event webhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		logger.CtxWithError(c.Request.Context(), "malformed webhook payload", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	if event.Event == "" || event.Object.ID == "" {
		logger.CtxWarn(c.Request.Context(), "webhook payload missing event or object.id")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	logger.CtxInfo(c.Request.Context(), "webhook received",
		"event", event.Event, "payment_id", event.Object.ID)

	if err := h.subscriptions.ApplyGatewayEvent(c.Request.Context(), event.Event, event.Object.ID); err != nil {
		// Ошибку логируем, но шлюзу отвечаем успехом: событие разобрано,
		// бесконечный ретрай той же ошибки ничего не исправит.
		logger.CtxWithError(c.Request.Context(), "failed to apply gateway event", err,
			"event", event.Event, "payment_id", event.Object.ID)
	}

	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
