package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the relay server and capture agent.
type Config struct {
	Port string
	Env  string

	// Relay persistence
	DatabaseURL string // postgres snapshot store, optional
	SQLitePath  string // sqlite snapshot store, used when DatabaseURL is empty
	RedisURL    string // redis inbox transport, optional (memory inbox otherwise)

	// Session registry
	SessionTTL time.Duration

	// Capture agent
	RelayURL         string
	PageURL          string // URL (or substring) of the tab to observe
	ChromeControlURL string // existing Chrome DevTools endpoint; launches one if empty
	Headless         bool
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/borg.db"),
		RedisURL:         os.Getenv("REDIS_URL"),
		SessionTTL:       getDuration("SESSION_TTL", 5*time.Minute),
		RelayURL:         getEnv("RELAY_URL", "http://localhost:8080"),
		PageURL:          os.Getenv("PAGE_URL"),
		ChromeControlURL: os.Getenv("CHROME_CONTROL_URL"),
		Headless:         getEnv("HEADLESS", "false") == "true",
	}

	// In production, require a real database for snapshots
	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		panic("DATABASE_URL is required in production")
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
