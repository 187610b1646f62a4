// Package config provides environment-driven configuration for revisor.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	StorageBackend string
	DatabaseURL    Secret
	DBMaxConns     int
	BadgerPath     string
	BadgerInMemory bool
	BadgerGC       time.Duration
	Port           string
	ListenHost     string
	CORSOrigins    []string
	LogLevel       string
	SchemaFile     string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		StorageBackend: strings.ToLower(envOrDefault("STORAGE_BACKEND", BackendBadger)),
		DatabaseURL:    Secret(envOrDefault("DATABASE_URL", "")),
		BadgerPath:     envOrDefault("BADGER_PATH", "./data"),
		BadgerInMemory: envOrDefault("BADGER_IN_MEMORY", "false") == "true",
		Port:           envOrDefault("PORT", "3040"),
		ListenHost:     envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		SchemaFile:     envOrDefault("SCHEMA_FILE", "schemas.yaml"),
	}

	maxConns, err := strconv.Atoi(envOrDefault("DB_MAX_CONNS", "20"))
	if err != nil || maxConns < 1 || maxConns > 200 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be an integer between 1 and 200")
	}
	cfg.DBMaxConns = maxConns

	gc, err := time.ParseDuration(envOrDefault("BADGER_GC_INTERVAL", "5m"))
	if err != nil || gc < 0 {
		return nil, fmt.Errorf("BADGER_GC_INTERVAL must be a non-negative duration")
	}
	cfg.BadgerGC = gc

	if origins := envOrDefault("CORS_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
