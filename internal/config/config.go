// Package config loads the process-level configuration the trader needs before it can
// open a store: HTTP port, database path, log verbosity, and the outbound endpoints for
// the two LLM services. Tunables that change trading behavior itself (risk limits,
// schedule times, strategy allowlist) live in the store's config table and are read
// through internal/runtimeconfig instead.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration, loaded once at startup.
type Config struct {
	// HTTP server
	Port    int
	DevMode bool

	// Store
	DatabasePath string

	// Logging
	LogLevel  string
	LogPretty bool

	// AI Gateway upstreams (internal/ai)
	AnalysisServiceURL string // DeepSeek-class analysis model
	SearchServiceURL   string // Grok-class sentiment/search model
	AIRequestTimeout   time.Duration

	// Market Data Gateway
	HTTPClientTimeout time.Duration
}

// Load reads configuration from the environment, falling back to a ".env" file in the
// working directory if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnvAsInt("PORT", 8080),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		DatabasePath:       getEnv("DATABASE_PATH", "./data/trader.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getEnvAsBool("LOG_PRETTY", false),
		AnalysisServiceURL: getEnv("ANALYSIS_SERVICE_URL", "http://localhost:11434"),
		SearchServiceURL:   getEnv("SEARCH_SERVICE_URL", "https://api.x.ai"),
		AIRequestTimeout:   getEnvAsDuration("AI_REQUEST_TIMEOUT", 5*time.Minute),
		HTTPClientTimeout:  getEnvAsDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields Load cannot default its way around.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
