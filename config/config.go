// Package config provides configuration for the dataio store and audit surface.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mxm-platform/dataio/domain"
)

// Config holds the dataio configuration. The store consumes it as a
// read-only view; nothing mutates it after Load.
type Config struct {
	// Backing locations
	DBPath        string
	ResponsesRoot string

	// Default cache policy
	DefaultCacheMode  domain.CacheMode
	DefaultTTLSeconds *int64

	// Optional ephemeral cache backend
	RedisAddr string

	// Audit HTTP surface
	HTTPPort int

	// Logging
	LogLevel string
}

// ConfigurationError reports a missing or invalid configuration value.
// It is fatal: store construction fails before any session work begins.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	mode, err := domain.ParseCacheMode(getEnv("DATAIO_CACHE_MODE", string(domain.CacheModeDefault)))
	if err != nil {
		return nil, &ConfigurationError{Field: "DATAIO_CACHE_MODE", Reason: err.Error()}
	}

	cfg := &Config{
		DBPath:           getEnv("DATAIO_DB_PATH", "dataio.sqlite"),
		ResponsesRoot:    getEnv("DATAIO_RESPONSES_ROOT", "responses"),
		DefaultCacheMode: mode,
		RedisAddr:        getEnv("DATAIO_REDIS_ADDR", ""),
		HTTPPort:         getEnvInt("DATAIO_HTTP_PORT", 8080),
		LogLevel:         getEnv("DATAIO_LOG_LEVEL", "info"),
	}

	if raw := os.Getenv("DATAIO_TTL_SECONDS"); raw != "" {
		ttl, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ttl < 0 {
			return nil, &ConfigurationError{Field: "DATAIO_TTL_SECONDS", Reason: "must be a non-negative integer"}
		}
		cfg.DefaultTTLSeconds = &ttl
	}

	return cfg, nil
}

// Validate checks the backing locations the store needs.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return &ConfigurationError{Field: "DBPath", Reason: "metadata store path is required"}
	}
	if c.ResponsesRoot == "" {
		return &ConfigurationError{Field: "ResponsesRoot", Reason: "payload root directory is required"}
	}
	if _, err := domain.ParseCacheMode(string(c.DefaultCacheMode)); err != nil {
		return &ConfigurationError{Field: "DefaultCacheMode", Reason: err.Error()}
	}
	if c.DefaultTTLSeconds != nil && *c.DefaultTTLSeconds < 0 {
		return &ConfigurationError{Field: "DefaultTTLSeconds", Reason: "must be non-negative"}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
