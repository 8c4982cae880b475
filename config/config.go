// Package config loads service configuration from the environment.
// A .env file in the working directory is honored when present.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port        string
	DBPath      string
	LogLevel    string
	CORSOrigins []string

	// DisbursementCron is the cron spec for the due-date job.
	// Empty disables the scheduler.
	DisbursementCron string
}

// Load reads configuration from environment variables, with defaults that
// work for local development.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:             getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "grants.db"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		DisbursementCron: getEnv("DISBURSEMENT_CRON", "0 6 * * *"),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
