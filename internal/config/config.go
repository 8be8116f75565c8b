package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database; empty selects the in-memory store
	DatabaseURL string

	// Redis; empty disables the distributed lock and the notification queue
	RedisURL          string
	NotificationQueue string
	BattleLockTTL     time.Duration

	// JWT
	JWTSecret     string
	JWTExpiration time.Duration
	JWTIssuer     string
	JWTLeeway     time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Action rate limit, per user
	ActionRateLimit  int
	ActionRateRefill float64
}

// Load reads .env when present, then the process environment. Environment
// variables win over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:               v.GetString("PORT"),
		Env:                v.GetString("ENV"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		RedisURL:           v.GetString("REDIS_URL"),
		NotificationQueue:  v.GetString("NOTIFICATION_QUEUE"),
		BattleLockTTL:      v.GetDuration("BATTLE_LOCK_TTL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTExpiration:      v.GetDuration("JWT_EXPIRATION"),
		JWTIssuer:          v.GetString("JWT_ISSUER"),
		JWTLeeway:          v.GetDuration("JWT_LEEWAY"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		ActionRateLimit:    v.GetInt("ACTION_RATE_LIMIT"),
		ActionRateRefill:   v.GetFloat64("ACTION_RATE_REFILL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("NOTIFICATION_QUEUE", "notifications:pending")
	v.SetDefault("BATTLE_LOCK_TTL", "5s")
	v.SetDefault("JWT_SECRET", "your-secret-key")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_LEEWAY", "30s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("ACTION_RATE_LIMIT", 30)
	v.SetDefault("ACTION_RATE_REFILL", 0.5)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Env == "production" && c.JWTSecret == "your-secret-key" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.BattleLockTTL <= 0 {
		return fmt.Errorf("BATTLE_LOCK_TTL must be positive, got %s", c.BattleLockTTL)
	}
	if c.ActionRateLimit <= 0 || c.ActionRateRefill <= 0 {
		return fmt.Errorf("ACTION_RATE_LIMIT and ACTION_RATE_REFILL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
