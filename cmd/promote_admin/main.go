package main

import (
	"context"
	"flag"

	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/internal/database"
	"github.com/triggah61/acent-messenger-backend/internal/seeds"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
)

func main() {
	email := flag.String("email", "", "email of the account to promote")
	roleName := flag.String("role", "admin", "role to bind (admin or support)")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	if *email == "" {
		logger.Fatal().Msg("-email is required")
	}
	ctx := context.Background()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	roles, err := seeds.Roles(ctx, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load roles")
	}
	role, ok := roles[*roleName]
	if !ok {
		logger.Fatal().Str("role", *roleName).Msg("Unknown role")
	}

	user, err := seeds.Promote(ctx, db, *email, role)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to promote user")
	}
	logger.Info().Str("email", user.Email).Str("roleType", string(user.RoleType)).Str("role", role.Name).Msg("User promoted")
}
