package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/database"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"gorm.io/gorm"
)

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// AuthMiddleware requires a valid session token for an existing account
// that is neither deleted nor blocked. It sets userId, user and claims.
func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortWith(c, errors.Unauthorized("Authorization header required"))
			return
		}

		claims, err := utils.ValidateSessionToken(token)
		if err != nil {
			abortWith(c, errors.Unauthorized("Invalid or expired token"))
			return
		}

		if database.IsTokenBlacklisted(c.Request.Context(), claims.GetJTI()) {
			abortWith(c, errors.Unauthorized("Token has been revoked"))
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).Preload("Role").
			Scopes(models.NotDeleted).First(&user, "id = ?", claims.UserID).Error; err != nil {
			abortWith(c, errors.Unauthorized("User not found or inactive"))
			return
		}
		switch user.Status {
		case models.UserBlocked:
			abortWith(c, errors.NewAppError(http.StatusForbidden, "Your account has been blocked"))
			return
		case models.UserPending:
			abortWith(c, errors.Unauthorized("Account is not activated"))
			return
		}

		c.Set(KeyUserID, user.ID)
		c.Set(KeyUser, &user)
		c.Set(KeyClaims, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware sets userId when a valid, unrevoked token is
// present and lets anonymous requests through otherwise.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		claims, err := utils.ValidateSessionToken(token)
		if err != nil || database.IsTokenBlacklisted(c.Request.Context(), claims.GetJTI()) {
			c.Next()
			return
		}
		c.Set(KeyUserID, claims.UserID)
		c.Next()
	}
}
