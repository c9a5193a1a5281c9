package routes

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/internal/handlers"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/realtime"
	"github.com/triggah61/acent-messenger-backend/internal/services"
	"gorm.io/gorm"
)

// Options are what the router is assembled from. Socket, Metrics and
// Limiters are optional.
type Options struct {
	DB       *gorm.DB
	Config   *config.Config
	Services *services.Container
	Socket   *realtime.Server
	Metrics  *middleware.Metrics
	Limiters *middleware.Limiters
}

// deps is shared by the Register* functions.
type deps struct {
	h        *handlers.Handler
	auth     gin.HandlerFunc
	limiters *middleware.Limiters
	svc      *services.Container
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Limiters == nil {
		opts.Limiters = middleware.NewLimiters()
	}

	r := gin.New()
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(opts.Config))
	r.Use(middleware.SecurityHeaders())

	// socket.io polling is chatty, keep it out of the general limiter
	general := middleware.RateLimitMiddleware(opts.Limiters.General)
	r.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/socket.io/") {
			c.Next()
			return
		}
		general(c)
	})

	d := deps{
		h:        handlers.New(opts.DB, opts.Config, opts.Services),
		auth:     middleware.AuthMiddleware(opts.DB),
		limiters: opts.Limiters,
		svc:      opts.Services,
	}

	api := r.Group("/api")
	{
		// Auth routes skip the maintenance check so admins can still sign in.
		RegisterAuthRoutes(api.Group("/auth"), d)
		RegisterPublicConfigRoutes(api.Group("/config"), d)

		protected := api.Group("")
		protected.Use(d.auth, middleware.MaintenanceMode(opts.Services.Settings))

		RegisterSecurityRoutes(protected.Group("/security"), d)
		RegisterProfileRoutes(protected.Group("/profile"), d)
		RegisterUserRoutes(protected.Group("/users"), d)
		RegisterChatRoutes(protected.Group("/user/chat"), d)
		RegisterContactRoutes(protected.Group("/user/contact"), d)
		RegisterPostRoutes(protected.Group("/user/post"), d)
		RegisterProductRoutes(protected.Group("/user/product"), d)
		RegisterNotificationRoutes(protected.Group("/user/notifications"), d)

		// Admin routes bypass maintenance
		admin := api.Group("", d.auth, middleware.RequireDashboard())
		RegisterConfigRoutes(admin.Group("/config"), d)
		admin.GET("/dashboard", middleware.RequirePermission(models.PermDashboard), d.h.Dashboard)
	}

	r.GET("/health", d.h.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", opts.Metrics.Handler())
	}
	if opts.Socket != nil {
		r.GET("/socket.io/*any", opts.Socket.Handler())
		r.POST("/socket.io/*any", opts.Socket.Handler())
	}
	return r
}
