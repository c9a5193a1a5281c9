package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/internal/database"
	"github.com/triggah61/acent-messenger-backend/internal/jobs"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/internal/migrations"
	"github.com/triggah61/acent-messenger-backend/internal/realtime"
	"github.com/triggah61/acent-messenger-backend/internal/routes"
	"github.com/triggah61/acent-messenger-backend/internal/services"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
)

func main() {
	// 0. Load config & initialize logger
	cfg := config.Load()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	logger.Info().Str("environment", cfg.AppEnv).Msg("Starting Acent messenger backend...")

	if missing := cfg.Validate(); len(missing) > 0 {
		if cfg.IsProduction() {
			logger.Fatal().Strs("missing", missing).Msg("Required configuration is missing")
		}
		logger.Warn().Strs("missing", missing).Msg("Configuration incomplete, using development fallbacks")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Database, migrations and Redis
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	logger.Info().Msg("🔄 Running database migrations...")
	if err := migrations.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate tables")
	}
	if err := migrations.NewMigrator(db).Run(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Info().Msg("✅ Database migrations complete")

	database.InitRedis(ctx, cfg)

	// 2. External providers
	deps := services.Deps{
		DB:     db,
		Config: cfg,
		SMS:    services.NewSMSSender(cfg),
		Mailer: services.NewMailer(cfg),
		Pusher: services.NewPusher(cfg),
	}
	if storage, err := services.NewS3Storage(ctx, cfg); err != nil {
		logger.Warn().Err(err).Msg("Object storage unavailable, uploads are disabled")
	} else {
		deps.Storage = storage
	}

	// 3. Socket server and services
	socket := realtime.NewServer(db)
	socket.Serve()
	defer socket.Close()
	deps.Realtime = socket

	svc := services.NewContainer(deps)

	// 4. Background work
	otpJob := jobs.StartOtpExpiryJob(ctx, cfg, svc.Otps)
	limiters := middleware.NewLimiters()
	limiters.StartCleanup(ctx)

	// 5. Router
	r := routes.NewRouter(routes.Options{
		DB:       db,
		Config:   cfg,
		Services: svc,
		Socket:   socket,
		Metrics:  middleware.NewMetrics(),
		Limiters: limiters,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("🛑 Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	<-otpJob

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if database.Redis != nil {
		_ = database.Redis.Close()
	}
	logger.Info().Msg("✅ Server exited gracefully")
}
