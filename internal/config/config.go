package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort         int
	DatabasePath       string
	JWTSecret          string
	SendGridAPIKey     string // empty disables outbound mail
	MailFrom           string
	TokenPruneSchedule string // cron expression for the token pruner
	AllowedOrigins     []string
}

// Load loads configuration from environment variables or sets defaults.
// JWT_SECRET has no sane default and must be set.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("required environment variable JWT_SECRET is not set")
	}

	return &Config{
		ServerPort:         port,
		DatabasePath:       getEnv("DATABASE_PATH", "./taskly.db"),
		JWTSecret:          secret,
		SendGridAPIKey:     os.Getenv("SENDGRID_API_KEY"),
		MailFrom:           getEnv("MAIL_FROM", "hello@taskly.app"),
		TokenPruneSchedule: getEnv("TOKEN_PRUNE_SCHEDULE", "@hourly"),
		AllowedOrigins:     []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
