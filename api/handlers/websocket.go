package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blackroad/websocket-manager/internal/registry"
	"github.com/blackroad/websocket-manager/internal/ws"
)

// WebSocketHandler attaches clients to sessions over WebSocket.
type WebSocketHandler struct {
	registry *registry.Registry
	gateway  *ws.Gateway
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(reg *registry.Registry, gateway *ws.Gateway) *WebSocketHandler {
	return &WebSocketHandler{
		registry: reg,
		gateway:  gateway,
	}
}

// Attach handles GET /api/connections/:id/attach - upgrades to WebSocket.
func (h *WebSocketHandler) Attach(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID is required")
		return
	}

	if _, ok := h.registry.Get(sessionID); !ok {
		sendError(c, http.StatusNotFound, "CONNECTION_NOT_FOUND", "Connection "+sessionID+" not found")
		return
	}

	if err := h.gateway.HandleConnection(c.Writer, c.Request, sessionID); err != nil {
		// Upgrade failures are reported by the gateway
		return
	}
}

// RegisterRoutes registers the WebSocket handler routes on a Gin router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/connections/:id/attach", h.Attach)
}
