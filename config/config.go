// Package config centralises configuration parsing for the tracker.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// DefaultJWTSecret is only suitable for local development.
const DefaultJWTSecret = "changeme-dev-secret"

// Config captures runtime configuration values.
type Config struct {
	HTTPAddress  string
	DatabaseURL  string // postgres URL or DSN; empty selects SQLite
	SQLitePath   string
	JWTSecret    string
	JWTIssuer    string
	JWTTTL       time.Duration
	LogLevel     string
	LogFormat    string // console or json
	CatalogPath  string // empty uses the embedded catalog
	Locale       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	HistoryLimit int
}

// Load reads a local .env file when present, then environment variables,
// applying defaults for local development.
func Load() Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Warn().Err(err).Msg("failed to load .env file")
		}
	}

	cfg := Config{
		HTTPAddress:  getEnv("HTTP_ADDRESS", ":8080"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SQLitePath:   getEnv("SQLITE_PATH", "carbon.db"),
		JWTSecret:    getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTIssuer:    getEnv("JWT_ISSUER", "carbon-tracker"),
		JWTTTL:       getDurationEnv("JWT_TTL", 24*time.Hour),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "console"),
		CatalogPath:  getEnv("CATALOG_PATH", ""),
		Locale:       getEnv("LOCALE", "fr"),
		ReadTimeout:  getDurationEnv("READ_TIMEOUT", 5*time.Second),
		WriteTimeout: getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
		HistoryLimit: getIntEnv("HISTORY_LIMIT", 50),
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return cfg
}

// UsesDefaultSecret reports whether JWT_SECRET was left unset.
func (c Config) UsesDefaultSecret() bool {
	return c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
