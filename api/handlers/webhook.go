package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blackroad/websocket-manager/internal/delivery"
	"github.com/blackroad/websocket-manager/internal/model"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the request body.
const SignatureHeader = "X-Webhook-Signature"

// WebhookHandler verifies and fans out payment provider events. The
// payload stays opaque: a verified body is broadcast as-is.
type WebhookHandler struct {
	delivery *delivery.Service
	secret   string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(svc *delivery.Service, secret string) *WebhookHandler {
	return &WebhookHandler{
		delivery: svc,
		secret:   secret,
	}
}

// verifySignature checks the request signature against the shared secret.
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Payment handles POST /api/webhooks/payment - broadcasts a verified
// payment event to all active connections.
func (h *WebhookHandler) Payment(c *gin.Context) {
	if h.secret == "" {
		sendError(c, http.StatusServiceUnavailable, "WEBHOOK_DISABLED", "Webhook secret is not configured")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Failed to read request body")
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if signature == "" || !h.verifySignature(body, signature) {
		sendError(c, http.StatusUnauthorized, "INVALID_SIGNATURE", model.ErrInvalidSignature.Error())
		return
	}

	delivered, err := h.delivery.Broadcast(c.Request.Context(), string(body), nil, model.MessageTypePayment, nil)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to broadcast event: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, BroadcastResponse{
		Delivered: delivered,
		Count:     len(delivered),
	})
}

// RegisterRoutes registers the webhook handler routes on a Gin router group.
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/payment", h.Payment)
}
