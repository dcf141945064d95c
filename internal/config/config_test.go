package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"CLASSIFIER_MODEL", "CLASSIFY_CHUNK_SIZE", "CLASSIFY_MAX_CONCURRENCY", "CLASSIFY_RATE_LIMIT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Model == "" {
		t.Error("expected a default model name")
	}
	if cfg.ChunkSize != 50 {
		t.Errorf("ChunkSize = %d, want 50", cfg.ChunkSize)
	}
	if cfg.MaxConcurrency != 6 {
		t.Errorf("MaxConcurrency = %d, want 6", cfg.MaxConcurrency)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %v, want 0", cfg.RateLimit)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate, got: %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CLASSIFIER_MODEL", "gemini-2.0-flash")
	t.Setenv("CLASSIFY_CHUNK_SIZE", "25")
	t.Setenv("CLASSIFY_MAX_CONCURRENCY", "3")
	t.Setenv("CLASSIFY_RATE_LIMIT", "2.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.ChunkSize != 25 || cfg.MaxConcurrency != 3 {
		t.Errorf("chunk/concurrency = %d/%d", cfg.ChunkSize, cfg.MaxConcurrency)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v", cfg.RateLimit)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CLASSIFY_CHUNK_SIZE", "not-a-number")
	t.Setenv("CLASSIFY_RATE_LIMIT", "fast")

	cfg := Load()

	if cfg.ChunkSize != 50 {
		t.Errorf("ChunkSize = %d, want default 50", cfg.ChunkSize)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %v, want default 0", cfg.RateLimit)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Model:          "",
		ChunkSize:      0,
		MaxConcurrency: 100,
		RateLimit:      -1,
		LogLevel:       "loud",
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	msg := err.Error()
	for _, want := range []string{"model", "chunk size", "max concurrency", "rate limit", "log level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("validation message missing %q: %s", want, msg)
		}
	}
}

func TestDispatcherConfig(t *testing.T) {
	cfg := &Config{ChunkSize: 10, MaxConcurrency: 4}

	dc := cfg.DispatcherConfig()
	if dc.ChunkSize != 10 || dc.MaxConcurrency != 4 {
		t.Errorf("dispatcher config = %+v", dc)
	}
	if dc.Limiter != nil {
		t.Error("limiter must be nil when rate limit is 0")
	}

	cfg.RateLimit = 5
	if dc := cfg.DispatcherConfig(); dc.Limiter == nil {
		t.Error("expected a limiter for a positive rate limit")
	}
}
