package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/models"
)

type statusCount struct {
	Status string
	Count  int64
}

func (h *Handler) countBy(c *gin.Context, model interface{}) (map[string]int64, error) {
	var rows []statusCount
	if err := h.db.WithContext(c.Request.Context()).Model(model).
		Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string]int64{}
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// Dashboard GET /api/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	users, err := h.countBy(c, &models.User{})
	if err != nil {
		fail(c, err)
		return
	}
	products, err := h.countBy(c, &models.Product{})
	if err != nil {
		fail(c, err)
		return
	}

	var totalUsers int64
	for status, n := range users {
		if status != string(models.UserDeleted) {
			totalUsers += n
		}
	}

	var recent []models.AdminAction
	if err := h.db.WithContext(c.Request.Context()).Preload("Admin", models.SelectUserSummary).
		Order("created_at DESC").Limit(10).Find(&recent).Error; err != nil {
		fail(c, err)
		return
	}

	ok(c, "Dashboard fetched", gin.H{
		"users":         gin.H{"total": totalUsers, "byStatus": users},
		"products":      gin.H{"byStatus": products},
		"recentActions": recent,
	})
}
