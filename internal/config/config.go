package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dvloznov/finance-classifier/internal/classify"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Config struct {
	// Gemini
	GeminiAPIKey string
	Model        string

	// Dispatcher
	ChunkSize      int
	MaxConcurrency int
	// RateLimit is requests per second against the model API; 0 disables
	// pacing.
	RateLimit float64

	// Logging
	LogLevel string
}

func Load() *Config {
	return &Config{
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		Model:        getEnv("CLASSIFIER_MODEL", classify.DefaultModelName),

		ChunkSize:      getEnvInt("CLASSIFY_CHUNK_SIZE", 50),
		MaxConcurrency: getEnvInt("CLASSIFY_MAX_CONCURRENCY", 6),
		RateLimit:      getEnvFloat("CLASSIFY_RATE_LIMIT", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid.
// The API key is not checked here: dry runs work without one, so the caller
// decides whether it is required.
func (c *Config) Validate() error {
	var errors []string

	if c.Model == "" {
		errors = append(errors, "classifier model cannot be empty")
	}

	if c.ChunkSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid chunk size %d: must be at least 1", c.ChunkSize))
	} else if c.ChunkSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid chunk size %d: must be at most 1000", c.ChunkSize))
	}

	if c.MaxConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid max concurrency %d: must be at least 1", c.MaxConcurrency))
	} else if c.MaxConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid max concurrency %d: must be at most 64", c.MaxConcurrency))
	}

	if c.RateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must not be negative", c.RateLimit))
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': %v", c.LogLevel, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// DispatcherConfig translates the environment settings into dispatcher
// tuning, including the optional rate limiter.
func (c *Config) DispatcherConfig() classify.Config {
	cfg := classify.Config{
		ChunkSize:      c.ChunkSize,
		MaxConcurrency: c.MaxConcurrency,
	}
	if c.RateLimit > 0 {
		cfg.Limiter = rate.NewLimiter(rate.Limit(c.RateLimit), 1)
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
