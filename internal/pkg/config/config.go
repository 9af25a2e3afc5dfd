package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr        string        `env:"SERVER_ADDR" envDefault:":8080"`
	AdminAddr         string        `env:"ADMIN_ADDR" envDefault:":9091"`
	PostgresURL       string        `env:"POSTGRES_URL,required"`
	RedisAddr         string        `env:"REDIS_ADDR"`                                // empty disables the profile cache
	WebhookURL        string        `env:"WEBHOOK_URL"`                               // empty falls back to stdout notifications
	WebhookPerMinute  int           `env:"WEBHOOK_PER_MINUTE" envDefault:"30"`
	SteamAPIKey       string        `env:"STEAM_API_KEY"`                             // empty disables profile lookups
	ProfileCacheTTL   time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"24h"`
	APIKeyCacheTTL    time.Duration `env:"API_KEY_CACHE_TTL" envDefault:"5m"`
	MaxBatchBytes     int64         `env:"MAX_BATCH_BYTES" envDefault:"1048576"`      // 1MB
	PendingEvictAfter time.Duration `env:"PENDING_EVICT_AFTER" envDefault:"0"`        // 0 disables eviction
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
