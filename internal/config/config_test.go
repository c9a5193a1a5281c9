package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.IsDev())
	assert.Same(t, cfg, AppConfig)
	assert.Contains(t, cfg.Validate(), "JWT_SECRET")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("OTP_TTL", "5m")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Empty(t, cfg.Validate())
}
