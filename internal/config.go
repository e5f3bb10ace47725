package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Supported database/sql driver names.
const (
	DriverPgx = "pgx"      // github.com/jackc/pgx/v5/stdlib
	DriverPq  = "postgres" // github.com/lib/pq
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Database
	DatabaseUrl    string
	DatabaseDriver string // "pgx" or "postgres"

	// Tier catalog
	// When CatalogFile is set the TOML file is the catalog of record and the
	// tier_definitions table is ignored.
	CatalogFile      string
	CatalogCacheTTL  time.Duration
	CatalogCacheSize int

	// History pages are capped at this many entries.
	HistoryMaxPageSize int

	// Admin API requests allowed per acting admin per minute.
	AdminRateLimit int

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string

	ShutdownTimeout time.Duration
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", DriverPgx),

		CatalogFile:      getEnv("CATALOG_FILE", ""),
		CatalogCacheTTL:  getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		CatalogCacheSize: getEnvInt("CATALOG_CACHE_SIZE", 64),

		HistoryMaxPageSize: getEnvInt("HISTORY_MAX_PAGE_SIZE", 100),
		AdminRateLimit:     getEnvInt("ADMIN_RATE_LIMIT", 60),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.DatabaseDriver != DriverPgx && cfg.DatabaseDriver != DriverPq {
		return nil, fmt.Errorf("DATABASE_DRIVER must be either '%s' or '%s', got: %s", DriverPgx, DriverPq, cfg.DatabaseDriver)
	}
	if cfg.HistoryMaxPageSize < 1 {
		return nil, fmt.Errorf("HISTORY_MAX_PAGE_SIZE must be positive, got: %d", cfg.HistoryMaxPageSize)
	}
	if cfg.AdminRateLimit < 1 {
		return nil, fmt.Errorf("ADMIN_RATE_LIMIT must be positive, got: %d", cfg.AdminRateLimit)
	}

	return cfg, nil
}

// IsDevelopment returns true when running locally.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
