package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server settings
	Port string `json:"port"`
	Host string `json:"host"`

	// Database settings
	DBDriver    string `json:"db_driver"` // "sqlite" or "postgres"
	DatabaseURL string `json:"-"`         // Don't expose in JSON

	// Logging
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"` // "json" or "console"

	// API auth (disabled when empty)
	APIAuthToken string `json:"-"`

	// Lookup cache settings
	CacheType         string `json:"cache_type"` // "none", "memory" or "redis"
	CacheTTLMinutes   int    `json:"cache_ttl_minutes"`
	CacheWarmSchedule string `json:"cache_warm_schedule"`
	RedisAddr         string `json:"redis_addr"`
	RedisPassword     string `json:"-"`
	RedisDB           int    `json:"redis_db"`

	// Distinct source/author lookups
	LookupLimit int `json:"lookup_limit"`

	// Snapshot export settings
	ExportType          string `json:"export_type"` // "", "gcs" or "s3"
	ExportBucket        string `json:"export_bucket"`
	ExportPrefix        string `json:"export_prefix"`
	ExportSchedule      string `json:"export_schedule"`
	ExportRetentionDays int    `json:"export_retention_days"`
	S3Region            string `json:"s3_region"`
}

// MaxLookupLimit bounds distinct source and author lookups.
const MaxLookupLimit = 20

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	config := &Config{
		Port:                getEnvOrDefault("PORT", "8080"),
		Host:                getEnvOrDefault("HOST", "0.0.0.0"),
		DBDriver:            strings.ToLower(getEnvOrDefault("DB_DRIVER", "sqlite")),
		DatabaseURL:         getEnvOrDefault("DATABASE_URL", "file:articles.db"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		APIAuthToken:        getEnvOrDefault("API_AUTH_TOKEN", ""),
		CacheType:           strings.ToLower(getEnvOrDefault("CACHE_TYPE", "memory")),
		CacheTTLMinutes:     getEnvOrDefaultInt("CACHE_TTL_MINUTES", 10),
		CacheWarmSchedule:   getEnvOrDefault("CACHE_WARM_SCHEDULE", "*/10 * * * *"),
		RedisAddr:           getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:             getEnvOrDefaultInt("REDIS_DB", 0),
		LookupLimit:         getEnvOrDefaultInt("LOOKUP_LIMIT", 20),
		ExportType:          strings.ToLower(getEnvOrDefault("EXPORT_TYPE", "")),
		ExportBucket:        getEnvOrDefault("EXPORT_BUCKET", ""),
		ExportPrefix:        getEnvOrDefault("EXPORT_PREFIX", ""),
		ExportSchedule:      getEnvOrDefault("EXPORT_SCHEDULE", "0 3 * * *"),
		ExportRetentionDays: getEnvOrDefaultInt("EXPORT_RETENTION_DAYS", 30),
		S3Region:            getEnvOrDefault("S3_REGION", ""),
	}

	return config, config.validate()
}

// CacheTTL returns the lookup cache entry lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// ExportRetention returns how long exported snapshots are kept
func (c *Config) ExportRetention() time.Duration {
	return time.Duration(c.ExportRetentionDays) * 24 * time.Hour
}

// ExportEnabled reports whether a snapshot sink is configured
func (c *Config) ExportEnabled() bool {
	return c.ExportType != ""
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return &ConfigError{Field: "DB_DRIVER", Message: "must be sqlite or postgres"}
	}
	if c.DatabaseURL == "" {
		return &ConfigError{Field: "DATABASE_URL", Message: "database URL is required"}
	}
	switch c.CacheType {
	case "none", "memory", "redis":
	default:
		return &ConfigError{Field: "CACHE_TYPE", Message: "must be none, memory or redis"}
	}
	if c.CacheType != "none" && c.CacheTTLMinutes <= 0 {
		return &ConfigError{Field: "CACHE_TTL_MINUTES", Message: "must be positive"}
	}
	if c.LookupLimit <= 0 || c.LookupLimit > MaxLookupLimit {
		return &ConfigError{Field: "LOOKUP_LIMIT", Message: "must be between 1 and 20"}
	}
	switch c.ExportType {
	case "":
	case "gcs", "s3":
		if c.ExportBucket == "" {
			return &ConfigError{Field: "EXPORT_BUCKET", Message: "bucket is required when EXPORT_TYPE is set"}
		}
	default:
		return &ConfigError{Field: "EXPORT_TYPE", Message: "must be gcs or s3"}
	}
	return nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default if not set
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
