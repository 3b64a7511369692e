package handlers

import (
	"net/http"
	"strconv"

	"memeiq_bot/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the dashboard API behind the JWT middleware.
type AdminHandler struct {
	stats *service.StatsService
}

func NewAdminHandler(stats *service.StatsService) *AdminHandler {
	return &AdminHandler{stats: stats}
}

// Stats returns the global analytics snapshot.
func (h *AdminHandler) Stats(c *gin.Context) {
	snap, err := h.stats.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":  snap,
		"uptime": h.stats.Uptime().String(),
	})
}

// TopUsers returns the heaviest users by lifetime analysis count.
// ?limit= defaults to 10, capped at 50.
func (h *AdminHandler) TopUsers(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 50 {
		limit = 50
	}

	users, err := h.stats.TopUsers(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}
