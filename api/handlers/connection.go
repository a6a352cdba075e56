// Package handlers provides HTTP API request handlers.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/blackroad/websocket-manager/internal/logger"
	"github.com/blackroad/websocket-manager/internal/model"
	"github.com/blackroad/websocket-manager/internal/registry"
)

// ConnectionHandler handles HTTP requests for connection management.
type ConnectionHandler struct {
	registry *registry.Registry
	audit    *logger.AuditLogger // optional
}

// NewConnectionHandler creates a new ConnectionHandler. audit may be nil.
func NewConnectionHandler(reg *registry.Registry, audit *logger.AuditLogger) *ConnectionHandler {
	return &ConnectionHandler{registry: reg, audit: audit}
}

// RegisterConnectionRequest represents the request body for registering a connection.
type RegisterConnectionRequest struct {
	SessionID string            `json:"sessionId"`
	Agent     string            `json:"agent" binding:"required"`
	Metadata  map[string]string `json:"metadata"`
}

// HeartbeatRequest represents the request body for a heartbeat update.
type HeartbeatRequest struct {
	LatencyMs *int64 `json:"latencyMs"`
}

// ConnectionResponse represents a connection in API responses.
type ConnectionResponse struct {
	SessionID      string            `json:"sessionId"`
	Agent          string            `json:"agent"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Status         string            `json:"status"`
	MessageCount   int64             `json:"messageCount"`
	ConnectedAt    string            `json:"connectedAt"`
	LastHeartbeat  string            `json:"lastHeartbeat"`
	DisconnectedAt string            `json:"disconnectedAt,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toConnectionResponse converts a model.Connection to ConnectionResponse.
func toConnectionResponse(c *model.Connection) *ConnectionResponse {
	resp := &ConnectionResponse{
		SessionID:     c.SessionID,
		Agent:         c.Agent,
		Metadata:      c.Metadata,
		Status:        string(c.Status),
		MessageCount:  c.MessageCount,
		ConnectedAt:   c.ConnectedAt.Format(time.RFC3339),
		LastHeartbeat: c.LastHeartbeat.Format(time.RFC3339),
	}
	if c.DisconnectedAt != nil {
		resp.DisconnectedAt = c.DisconnectedAt.Format(time.RFC3339)
	}
	return resp
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// Register handles POST /api/connections - registers or reactivates a connection.
func (h *ConnectionHandler) Register(c *gin.Context) {
	var req RegisterConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	conn, err := h.registry.Add(c.Request.Context(), sessionID, req.Agent, req.Metadata)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register connection: "+err.Error())
		return
	}

	if h.audit != nil {
		h.audit.Connect(conn.SessionID, conn.Agent)
	}

	c.JSON(http.StatusCreated, toConnectionResponse(conn))
}

// List handles GET /api/connections - lists all active connections.
func (h *ConnectionHandler) List(c *gin.Context) {
	conns := h.registry.GetAll()

	response := make([]*ConnectionResponse, len(conns))
	for i, conn := range conns {
		response[i] = toConnectionResponse(conn)
	}

	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/connections/:id - gets an active connection.
func (h *ConnectionHandler) Get(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID is required")
		return
	}

	conn, ok := h.registry.Get(sessionID)
	if !ok {
		sendError(c, http.StatusNotFound, "CONNECTION_NOT_FOUND", "Connection "+sessionID+" not found")
		return
	}

	c.JSON(http.StatusOK, toConnectionResponse(conn))
}

// Delete handles DELETE /api/connections/:id - disconnects a connection.
func (h *ConnectionHandler) Delete(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID is required")
		return
	}

	removed, err := h.registry.Remove(c.Request.Context(), sessionID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to disconnect: "+err.Error())
		return
	}
	if !removed {
		sendError(c, http.StatusNotFound, "CONNECTION_NOT_FOUND", "Connection "+sessionID+" not found")
		return
	}

	if h.audit != nil {
		h.audit.Disconnect(sessionID)
	}

	c.Status(http.StatusNoContent)
}

// Heartbeat handles POST /api/connections/:id/heartbeat - records a heartbeat.
func (h *ConnectionHandler) Heartbeat(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID is required")
		return
	}

	// Body is optional; latency is absent when the bind fails.
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = HeartbeatRequest{}
	}

	updated, err := h.registry.UpdateHeartbeat(c.Request.Context(), sessionID, req.LatencyMs)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update heartbeat: "+err.Error())
		return
	}
	if !updated {
		sendError(c, http.StatusNotFound, "CONNECTION_NOT_FOUND", "Connection "+sessionID+" not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterRoutes registers the connection handler routes on a Gin router group.
func (h *ConnectionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	connections := rg.Group("/connections")
	{
		connections.POST("", h.Register)
		connections.GET("", h.List)
		connections.GET("/:id", h.Get)
		connections.DELETE("/:id", h.Delete)
		connections.POST("/:id/heartbeat", h.Heartbeat)
	}
}
