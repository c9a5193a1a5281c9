package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/services"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// targetUser resolves the optional :id param. Acting on someone else
// requires dashboard access.
func (h *Handler) targetUser(c *gin.Context) (*models.User, error) {
	caller := middleware.CurrentUser(c)
	id := c.Param("id")
	if id == "" || id == caller.ID {
		return caller, nil
	}
	if !caller.HasDashboardAccess() {
		return nil, apperrors.Forbidden("Admin access required")
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Scopes(models.NotDeleted).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, err
	}
	if user.RoleType == models.RoleTypeSuperAdmin && caller.RoleType != models.RoleTypeSuperAdmin {
		return nil, apperrors.Forbidden("Cannot modify a super admin")
	}
	return &user, nil
}

func accountName(u *models.User) string {
	if u.Email != "" {
		return u.Email
	}
	if p := u.PhoneWithDialCode(); p != "" {
		return p
	}
	return u.ID
}

// SetGoogleAuthenticatorSecret GET /api/security/setGoogleAuthenticatorSecret/:id?
func (h *Handler) SetGoogleAuthenticatorSecret(c *gin.Context) {
	user, err := h.targetUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	if user.TwoFactorEnabled() {
		fail(c, apperrors.Conflict("Disable two-factor authentication before generating a new secret"))
		return
	}

	secret, err := services.GenerateTOTP(h.cfg.AppName, accountName(user))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Model(user).Updates(map[string]interface{}{
		"google_auth_seed":     secret.Secret,
		"google_authenticator": models.TwoFactorOff,
	}).Error; err != nil {
		fail(c, err)
		return
	}
	ok(c, "Authenticator secret generated", secret)
}

type toggleAuthenticatorRequest struct {
	Otp string `json:"otp" binding:"required"`
}

// ToggleAuthenticatorStatus POST /api/security/toggleAuthenticatorStatus/:id?
func (h *Handler) ToggleAuthenticatorStatus(c *gin.Context) {
	var input toggleAuthenticatorRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}
	user, err := h.targetUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	if user.GoogleAuthSeed == "" {
		fail(c, apperrors.Validation("Generate an authenticator secret first", nil))
		return
	}
	if !services.ValidateTOTP(input.Otp, user.GoogleAuthSeed) {
		fail(c, apperrors.Conflict("Invalid OTP"))
		return
	}

	next := models.TwoFactorOn
	if user.TwoFactorEnabled() {
		next = models.TwoFactorOff
	}
	if err := h.db.WithContext(c.Request.Context()).Model(user).Update("google_authenticator", next).Error; err != nil {
		fail(c, err)
		return
	}
	user.GoogleAuthenticator = next

	h.svc.Events.TwoFactorChanged(c.Request.Context(), user, next == models.TwoFactorOn)
	h.audit(c, models.ActionToggle2FA, user.ID, "user", string(next))

	message := "Two-factor authentication disabled"
	if next == models.TwoFactorOn {
		message = "Two-factor authentication enabled"
	}
	ok(c, message, gin.H{"googleAuthenticator": next})
}

const (
	sourceProfile        = "profile"
	sourceUserManagement = "user-management"
)

type changePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword" binding:"required"`
	ConfirmNewPassword string `json:"confirmNewPassword" binding:"required,eqfield=NewPassword"`
	SourcePage         string `json:"sourcePage" binding:"required,oneof=profile user-management"`
}

// ChangePassword POST /api/security/changePassword/:id?
func (h *Handler) ChangePassword(c *gin.Context) {
	var input changePasswordRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}
	if err := validatePasswordStrength(input.NewPassword); err != nil {
		fail(c, err)
		return
	}

	user, err := h.targetUser(c)
	if err != nil {
		fail(c, err)
		return
	}

	switch input.SourcePage {
	case sourceProfile:
		if input.CurrentPassword == "" {
			fail(c, apperrors.Validation("Validation failed", map[string]string{"currentPassword": "currentPassword is required"}))
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)) != nil {
			fail(c, apperrors.Unauthorized("Current password is incorrect"))
			return
		}
	case sourceUserManagement:
		if !middleware.CurrentUser(c).HasDashboardAccess() {
			fail(c, apperrors.Forbidden("Admin access required"))
			return
		}
	}

	updated, err := h.setPassword(c, user.ID, input.NewPassword)
	if err != nil {
		fail(c, err)
		return
	}
	h.svc.Events.PasswordChanged(c.Request.Context(), updated)
	h.audit(c, models.ActionChangePassword, user.ID, "user", input.SourcePage)
	ok(c, "Password changed successfully", nil)
}
