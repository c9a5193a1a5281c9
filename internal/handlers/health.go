package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/database"
)

// Health GET /health
func (h *Handler) Health(c *gin.Context) {
	status := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}
	code := http.StatusOK

	if err := database.Ping(h.db); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if database.Redis != nil {
		if err := database.Redis.Ping(c.Request.Context()).Err(); err != nil {
			status["redis"] = err.Error()
		} else {
			status["redis"] = "ok"
		}
	}
	c.JSON(code, status)
}
