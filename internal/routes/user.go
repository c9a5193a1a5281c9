package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/internal/models"
)

func RegisterSecurityRoutes(r *gin.RouterGroup, d deps) {
	r.GET("/setGoogleAuthenticatorSecret", d.h.SetGoogleAuthenticatorSecret)
	r.GET("/setGoogleAuthenticatorSecret/:id", d.h.SetGoogleAuthenticatorSecret)
	r.POST("/toggleAuthenticatorStatus", d.h.ToggleAuthenticatorStatus)
	r.POST("/toggleAuthenticatorStatus/:id", d.h.ToggleAuthenticatorStatus)
	r.POST("/changePassword", d.h.ChangePassword)
	r.POST("/changePassword/:id", d.h.ChangePassword)
}

func RegisterProfileRoutes(r *gin.RouterGroup, d deps) {
	r.GET("/info", d.h.ProfileInfo)
	r.POST("/updateProfile", d.h.UpdateProfile)
}

// RegisterUserRoutes mounts the admin user management endpoints.
func RegisterUserRoutes(r *gin.RouterGroup, d deps) {
	r.Use(middleware.RequireDashboard())
	{
		r.POST("", middleware.RequirePermission(models.PermUserCreate), d.h.CreateUser)
		r.GET("", middleware.RequirePermission(models.PermUserRead), d.h.ListUsers)
		r.GET("/:id", middleware.RequirePermission(models.PermUserRead), d.h.GetUser)
		r.PATCH("/:id", middleware.RequirePermission(models.PermUserUpdate), d.h.UpdateUser)
		r.DELETE("/:id", middleware.RequirePermission(models.PermUserDelete), d.h.DeleteUser)
	}
}

// RegisterPublicConfigRoutes exposes the settings clients need before
// signing in, such as the maintenance and registration switches.
func RegisterPublicConfigRoutes(r *gin.RouterGroup, d deps) {
	r.GET("/get", middleware.OptionalAuthMiddleware(), d.h.GetConfig)
}

func RegisterConfigRoutes(r *gin.RouterGroup, d deps) {
	r.POST("/update", middleware.RequirePermission(models.PermConfig), d.h.UpdateConfig)
}
