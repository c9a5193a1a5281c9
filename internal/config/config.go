package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	AppEnv      string `mapstructure:"APP_ENV"`
	AppName     string `mapstructure:"APP_NAME"`
	AppURL      string `mapstructure:"APP_URL"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	OTPTTL           time.Duration `mapstructure:"OTP_TTL"`
	OTPSweepInterval time.Duration `mapstructure:"OTP_SWEEP_INTERVAL"`
	OTPResendLimit   int           `mapstructure:"OTP_RESEND_LIMIT"`

	// OAuth
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `mapstructure:"GOOGLE_CALLBACK_URL"`

	GithubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GithubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`
	GithubCallbackURL  string `mapstructure:"GITHUB_CALLBACK_URL"`

	// S3 compatible object storage (AWS, R2, MinIO)
	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3BucketName      string `mapstructure:"S3_BUCKET_NAME"`
	S3PublicURL       string `mapstructure:"S3_PUBLIC_URL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	SMSAPIURL string `mapstructure:"SMS_API_URL"`
	SMSAPIID  string `mapstructure:"SMS_API_ID"`
	SMSSender string `mapstructure:"SMS_SENDER"`

	PusherAppID   string `mapstructure:"PUSHER_APP_ID"`
	PusherKey     string `mapstructure:"PUSHER_KEY"`
	PusherSecret  string `mapstructure:"PUSHER_SECRET"`
	PusherCluster string `mapstructure:"PUSHER_CLUSTER"`
}

// IsDev reports whether fixed OTP codes and console logs are in effect.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

var AppConfig = &Config{}

var defaults = map[string]interface{}{
	"PORT":               "8080",
	"APP_ENV":            "development",
	"APP_NAME":           "acent-messenger",
	"APP_URL":            "http://localhost:8080",
	"LOG_LEVEL":          "info",
	"FRONTEND_URL":       "http://localhost:5173",
	"JWT_TTL":            7 * 24 * time.Hour,
	"REDIS_ADDR":         "localhost:6379",
	"OTP_TTL":            10 * time.Minute,
	"OTP_SWEEP_INTERVAL": time.Minute,
	"OTP_RESEND_LIMIT":   5,
	"S3_REGION":          "auto",
	"SMTP_PORT":          587,
}

// Load reads .env (if present) and the environment into AppConfig.
func Load() *Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range envKeys() {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	AppConfig = cfg
	return cfg
}

// Validate reports settings that must be present outside development.
func (c *Config) Validate() []string {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	return missing
}

func envKeys() []string {
	return []string{
		"PORT", "APP_ENV", "APP_NAME", "APP_URL", "LOG_LEVEL", "DATABASE_URL", "FRONTEND_URL",
		"JWT_SECRET", "JWT_TTL", "REDIS_ADDR", "REDIS_PASSWORD",
		"OTP_TTL", "OTP_SWEEP_INTERVAL", "OTP_RESEND_LIMIT",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_CALLBACK_URL",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL",
		"S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_BUCKET_NAME", "S3_PUBLIC_URL",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
		"SMS_API_URL", "SMS_API_ID", "SMS_SENDER",
		"PUSHER_APP_ID", "PUSHER_KEY", "PUSHER_SECRET", "PUSHER_CLUSTER",
	}
}
