package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/pkg/errors"
)

// RequireDashboard restricts a route to admin and superAdmin accounts.
// Must run after AuthMiddleware.
func RequireDashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortWith(c, errors.Unauthorized("Unauthorized"))
			return
		}
		if !user.HasDashboardAccess() {
			abortWith(c, errors.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// RequirePermission lets superAdmin through and otherwise checks the
// permission against the user's role.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortWith(c, errors.Unauthorized("Unauthorized"))
			return
		}
		if !user.Can(permission) {
			abortWith(c, errors.Forbidden("Insufficient permissions"))
			return
		}
		c.Next()
	}
}
