package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blackroad/websocket-manager/internal/delivery"
	"github.com/blackroad/websocket-manager/internal/logger"
	"github.com/blackroad/websocket-manager/internal/model"
	"github.com/blackroad/websocket-manager/internal/query"
	"github.com/blackroad/websocket-manager/pkg/filter"
)

// MessageHandler handles HTTP requests for message delivery and history.
type MessageHandler struct {
	delivery *delivery.Service
	history  *query.HistoryReader
	audit    *logger.AuditLogger // optional
}

// NewMessageHandler creates a new MessageHandler. audit may be nil.
func NewMessageHandler(svc *delivery.Service, history *query.HistoryReader, audit *logger.AuditLogger) *MessageHandler {
	return &MessageHandler{
		delivery: svc,
		history:  history,
		audit:    audit,
	}
}

// BroadcastRequest represents the request body for a broadcast.
type BroadcastRequest struct {
	Content  string `json:"content" binding:"required"`
	Type     string `json:"type"`
	Agent    string `json:"agent"`
	SenderID string `json:"senderId"`
}

// SendRequest represents the request body for a direct send.
type SendRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Content   string `json:"content" binding:"required"`
	Type      string `json:"type"`
	SenderID  string `json:"senderId"`
}

// BroadcastResponse reports the outcome of a broadcast.
type BroadcastResponse struct {
	Delivered []string `json:"delivered"`
	Count     int      `json:"count"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	MessageID   string  `json:"messageId"`
	Type        string  `json:"type"`
	SenderID    *string `json:"senderId,omitempty"`
	RecipientID string  `json:"recipientId"`
	Content     string  `json:"content"`
	SentAt      string  `json:"sentAt"`
	Delivered   bool    `json:"delivered"`
}

// toMessageResponse converts a model.Message to MessageResponse.
func toMessageResponse(m *model.Message) *MessageResponse {
	return &MessageResponse{
		MessageID:   m.MessageID,
		Type:        m.Type,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		SentAt:      m.SentAt.Format(time.RFC3339),
		Delivered:   m.Delivered,
	}
}

// optionalSender converts a possibly empty sender string to a pointer.
func optionalSender(senderID string) *string {
	if senderID == "" {
		return nil
	}
	return &senderID
}

// Broadcast handles POST /api/messages/broadcast - fans a message out to
// every active connection, optionally restricted to one agent.
func (h *MessageHandler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	var f filter.Filter
	if req.Agent != "" {
		f = filter.ByAgent(req.Agent)
	}

	delivered, err := h.delivery.Broadcast(c.Request.Context(), req.Content, f, req.Type, optionalSender(req.SenderID))
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to broadcast: "+err.Error())
		return
	}

	if h.audit != nil {
		h.audit.Broadcast(req.Type, len(delivered))
	}

	c.JSON(http.StatusOK, BroadcastResponse{
		Delivered: delivered,
		Count:     len(delivered),
	})
}

// Send handles POST /api/messages/send - delivers a message to one session.
func (h *MessageHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	msg, err := h.delivery.Send(c.Request.Context(), req.SessionID, req.Content, req.Type, optionalSender(req.SenderID))
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to send: "+err.Error())
		return
	}
	if msg == nil {
		sendError(c, http.StatusNotFound, "CONNECTION_NOT_FOUND", "Connection "+req.SessionID+" not found")
		return
	}

	c.JSON(http.StatusCreated, toMessageResponse(msg))
}

// History handles GET /api/messages - returns recent messages, most recent
// first. Query params: sessionId (optional), limit (default 50).
func (h *MessageHandler) History(c *gin.Context) {
	sessionID := c.Query("sessionId")

	limit := query.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	messages, err := h.history.MessageHistory(c.Request.Context(), sessionID, limit)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load history: "+err.Error())
		return
	}

	response := make([]*MessageResponse, len(messages))
	for i, msg := range messages {
		response[i] = toMessageResponse(msg)
	}

	c.JSON(http.StatusOK, response)
}

// RegisterRoutes registers the message handler routes on a Gin router group.
func (h *MessageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	messages := rg.Group("/messages")
	{
		messages.POST("/broadcast", h.Broadcast)
		messages.POST("/send", h.Send)
		messages.GET("", h.History)
	}
}
