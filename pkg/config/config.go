// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Upstream board API
	Monday *MondayConfig

	// Board identifiers
	DealsBoardID      string
	WorkOrdersBoardID string

	// Caveat generation
	CaveatThreshold float64

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DealsBoardID:      os.Getenv("DEALS_BOARD_ID"),
		WorkOrdersBoardID: os.Getenv("WORKORDERS_BOARD_ID"),
		CaveatThreshold:   getEnvAsFloat("CAVEAT_THRESHOLD", 0.20),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}

	mondayConfig, err := LoadMondayConfig()
	if err != nil {
		return nil, errors.New("failed to load board API configuration: " + err.Error())
	}
	cfg.Monday = mondayConfig

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Monday == nil {
		return errors.New("board API configuration is required")
	}

	if c.DealsBoardID == "" {
		return errors.New("DEALS_BOARD_ID environment variable is required")
	}

	if c.WorkOrdersBoardID == "" {
		return errors.New("WORKORDERS_BOARD_ID environment variable is required")
	}

	if c.CaveatThreshold < 0 || c.CaveatThreshold >= 1 {
		return errors.New("caveat threshold must be in [0, 1)")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultMS int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultMS)) * time.Millisecond
}
