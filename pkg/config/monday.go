// pkg/config/monday.go
package config

import (
	"errors"
	"os"
	"time"
)

// MondayConfig holds connection parameters for the Monday.com GraphQL API
type MondayConfig struct {
	APIURL     string
	APIKey     string
	APIVersion string

	// Pagination
	PageLimit int

	// Per-request timeout
	RequestTimeout time.Duration

	// Retry/backoff settings for transient failures
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// LoadMondayConfig loads board API configuration from environment variables
func LoadMondayConfig() (*MondayConfig, error) {
	apiKey := os.Getenv("MONDAY_API_KEY")
	if apiKey == "" {
		return nil, errors.New("MONDAY_API_KEY environment variable is required")
	}

	cfg := &MondayConfig{
		APIURL:     getEnv("MONDAY_API_URL", "https://api.monday.com/v2"),
		APIKey:     apiKey,
		APIVersion: getEnv("MONDAY_API_VERSION", "2024-10"),

		PageLimit:      getEnvAsInt("MONDAY_PAGE_LIMIT", 500),
		RequestTimeout: getEnvAsDuration("MONDAY_REQUEST_TIMEOUT_MS", 30000),

		MaxAttempts:    getEnvAsInt("MONDAY_MAX_ATTEMPTS", 3),
		InitialBackoff: getEnvAsDuration("MONDAY_INITIAL_BACKOFF_MS", 1000),
		MaxBackoff:     getEnvAsDuration("MONDAY_MAX_BACKOFF_MS", 8000),
	}

	return cfg, cfg.Validate()
}

// Validate ensures the board API configuration is usable
func (c *MondayConfig) Validate() error {
	if c.APIURL == "" {
		return errors.New("board API URL cannot be empty")
	}
	if c.PageLimit <= 0 {
		return errors.New("page limit must be positive")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("max attempts must be positive")
	}
	if c.InitialBackoff <= 0 || c.MaxBackoff < c.InitialBackoff {
		return errors.New("backoff settings must be positive and max >= initial")
	}
	return nil
}
