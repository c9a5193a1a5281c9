package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/services"
)

// GetConfig GET /api/config/get
func (h *Handler) GetConfig(c *gin.Context) {
	settings, err := h.svc.Settings.All(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Settings fetched", settings)
}

type updateConfigRequest struct {
	Settings []services.SettingRecord `json:"settings" binding:"required,min=1,dive"`
}

// UpdateConfig POST /api/config/update upserts settings by name.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var input updateConfigRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}

	n, err := h.svc.Settings.Set(c.Request.Context(), input.Settings)
	if err != nil {
		fail(c, err)
		return
	}

	names := make([]string, 0, len(input.Settings))
	for _, s := range input.Settings {
		names = append(names, s.Name)
	}
	h.audit(c, models.ActionUpdateConfig, strings.Join(names, ","), "setting", "")

	settings, err := h.svc.Settings.All(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Settings updated", gin.H{"updated": n, "settings": settings})
}
