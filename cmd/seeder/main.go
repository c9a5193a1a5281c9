package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/internal/database"
	"github.com/triggah61/acent-messenger-backend/internal/migrations"
	"github.com/triggah61/acent-messenger-backend/internal/seeds"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
)

func main() {
	email := flag.String("email", os.Getenv("SEED_ADMIN_EMAIL"), "super admin email")
	password := flag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "super admin password")
	products := flag.String("products", "", "comma separated demo product codes")
	category := flag.String("category", "Demo", "category for demo products")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	ctx := context.Background()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	logger.Info().Msg("🔄 Running migrations (just in case)...")
	if err := migrations.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate tables")
	}
	if err := migrations.NewMigrator(db).Run(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	if _, err := seeds.Roles(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed roles")
	}
	if err := seeds.Settings(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed settings")
	}
	if _, err := seeds.SuperAdmin(ctx, db, seeds.Admin{
		Email:     *email,
		Password:  *password,
		FirstName: "Super",
		LastName:  "Admin",
	}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed super admin")
	}

	if *products != "" {
		codes := strings.Split(*products, ",")
		for i := range codes {
			codes[i] = strings.TrimSpace(codes[i])
		}
		n, err := seeds.Products(ctx, db, *category, codes)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed products")
		}
		logger.Info().Int("created", n).Msg("Demo products seeded")
	}

	logger.Info().Msg("✅ Seeding complete")
}
