package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/services"
)

// MaintenanceMode blocks everyone without dashboard access while the
// maintenanceMode setting is true. Must run after AuthMiddleware.
func MaintenanceMode(settings *services.SettingsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !settings.Bool(c.Request.Context(), models.SettingMaintenanceMode, false) {
			c.Next()
			return
		}
		if user := CurrentUser(c); user != nil && user.HasDashboardAccess() {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Maintenance in progress",
			"message": "The service is currently under maintenance. Please try again later.",
		})
	}
}

// RequireRegistrationOpen blocks sign-ups when registrationOpen is false.
func RequireRegistrationOpen(settings *services.SettingsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !settings.Bool(c.Request.Context(), models.SettingRegistrationOpen, true) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Registration closed",
				"message": "User registration is currently closed",
			})
			return
		}
		c.Next()
	}
}
