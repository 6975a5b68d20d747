package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds the application configuration.
type Config struct {
	ServerPort       int
	DatabasePath     string
	JWTSecret        string
	TokenTTL         time.Duration
	AllowedOrigins   []string
	AppEnv           string
	LogLevel         string
	SweepSchedule    string
	MaxTimerDuration time.Duration // 0 disables the stale timer sweeper
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load loads configuration from environment variables or sets defaults. A
// .env file in the working directory is read first if present; real
// environment variables win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	port, err := strconv.Atoi(getEnv("PORT", "5001"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	maxTimer, err := time.ParseDuration(getEnv("MAX_TIMER_DURATION", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_TIMER_DURATION: %w", err)
	}
	if maxTimer < 0 {
		return nil, fmt.Errorf("invalid MAX_TIMER_DURATION: must not be negative")
	}

	sweepSchedule := getEnv("SWEEP_SCHEDULE", "*/5 * * * *")
	if _, err := cron.ParseStandard(sweepSchedule); err != nil {
		return nil, fmt.Errorf("invalid SWEEP_SCHEDULE: %w", err)
	}

	return &Config{
		ServerPort:       port,
		DatabasePath:     getEnv("DATABASE_PATH", "./tasktracker.db"),
		JWTSecret:        secret,
		TokenTTL:         tokenTTL,
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		SweepSchedule:    sweepSchedule,
		MaxTimerDuration: maxTimer,
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
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
