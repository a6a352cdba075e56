package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blackroad/websocket-manager/internal/query"
)

// StatsHandler handles HTTP requests for aggregate statistics.
type StatsHandler struct {
	stats *query.StatsAggregator
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats *query.StatsAggregator) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Get handles GET /api/stats - returns connection and message aggregates.
func (h *StatsHandler) Get(c *gin.Context) {
	stats, err := h.stats.ConnectionStats(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to aggregate stats: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers the stats handler routes on a Gin router group.
func (h *StatsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.Get)
}
