package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
)

// GetNotifications GET /api/user/notifications
func (h *Handler) GetNotifications(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	q := pageQuery(c)

	items, total, err := h.svc.Notifications.List(c.Request.Context(), userID, q.Offset(), q.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	unread, err := h.svc.Notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Notifications fetched", gin.H{"page": utils.NewPage(items, total, q), "unread": unread})
}

// MarkNotificationRead PUT /api/user/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	n, err := h.svc.Notifications.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Notification marked as read", gin.H{"updated": n})
}

// MarkAllNotificationsRead PUT /api/user/notifications/read-all
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.svc.Notifications.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), "")
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "All notifications marked as read", gin.H{"updated": n})
}
