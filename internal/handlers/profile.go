package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
)

// ProfileInfo GET /api/profile/info
func (h *Handler) ProfileInfo(c *gin.Context) {
	user := middleware.CurrentUser(c)
	unread, err := h.svc.Notifications.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Profile fetched", gin.H{
		"user":                user,
		"hasDashboardAccess":  user.HasDashboardAccess(),
		"unreadNotifications": unread,
	})
}

type updateProfileForm struct {
	FirstName *string `form:"firstName" binding:"omitempty,min=1,max=100"`
	LastName  *string `form:"lastName" binding:"omitempty,max=100"`
	Username  *string `form:"username" binding:"omitempty,min=3,max=30"`
	Email     *string `form:"email" binding:"omitempty,email"`
}

// UpdateProfile POST /api/profile/updateProfile (multipart, optional photo)
func (h *Handler) UpdateProfile(c *gin.Context) {
	var input updateProfileForm
	if err := c.ShouldBind(&input); err != nil {
		bindFailed(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()
	updates := map[string]interface{}{}

	if input.FirstName != nil {
		updates["first_name"] = utils.StripHTML(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = utils.StripHTML(*input.LastName)
	}
	if input.Username != nil {
		updates["username"] = utils.GenerateSlug(*input.Username)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			var count int64
			if err := h.db.WithContext(ctx).Model(&models.User{}).Scopes(models.NotDeleted).
				Where("LOWER(email) = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
				fail(c, err)
				return
			}
			if count > 0 {
				fail(c, apperrors.Validation("Validation failed", map[string]string{"email": "email is already registered"}))
				return
			}
			updates["email"] = email
		}
	}

	fh, err := c.FormFile("photo")
	switch {
	case err == nil:
		attachment, err := h.svc.Attachments.Upload(ctx, user.ID, "profiles", models.CriteriaProfile, fh)
		if err != nil {
			fail(c, err)
			return
		}
		updates["photo"] = attachment.URL
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		fail(c, apperrors.BadRequest("Invalid photo upload"))
		return
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			fail(c, err)
			return
		}
	}
	if err := h.db.WithContext(ctx).Preload("Role").First(user, "id = ?", user.ID).Error; err != nil {
		fail(c, err)
		return
	}
	ok(c, "Profile updated successfully", user)
}
