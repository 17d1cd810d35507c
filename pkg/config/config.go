// Package config loads the service's environment-sourced configuration
// (see SPEC_FULL.md §6), applying defaults and validating required
// fields.
package config

import (
	"os"
	"strconv"
	"time"
)

// Backend selects the Job Store's persistence implementation.
type Backend string

// Supported persistence backends.
const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// Config is the immutable, fully-validated configuration for one process.
type Config struct {
	AnthropicAPIKey string
	ClaudeModel     string
	MaxTokens       int
	Temperature     float64

	EnableCache     bool
	CacheTTLSeconds int

	ClaudeRequestsPerMinute int

	BatchMaxConcurrentLLMCalls int
	BatchPersistenceBackend    Backend
	BatchJobStoragePath        string
	BatchSQLitePath            string
	BatchRecordRetryCount      int

	CostPer1KInputTokens  float64
	CostPer1KOutputTokens float64
	CostConfigured        bool

	Host string
	Port string
}

// CacheTTL returns the configured cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Addr returns the host:port bind address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads configuration from the process environment, applies
// defaults, and validates required fields.
func Load() (*Config, error) {
	cfg := &Config{
		AnthropicAPIKey: os.Getenv("anthropic_api_key"),
		ClaudeModel:     getEnvDefault("claude_model", "claude-3-5-haiku-20241022"),
		MaxTokens:       getEnvInt("max_tokens", 1200),
		Temperature:     getEnvFloat("temperature", 0.3),

		EnableCache:     getEnvBool("enable_cache", true),
		CacheTTLSeconds: getEnvInt("cache_ttl_seconds", 3600),

		ClaudeRequestsPerMinute: getEnvInt("claude_requests_per_minute", 50),

		BatchMaxConcurrentLLMCalls: getEnvInt("batch_max_concurrent_llm_calls", 5),
		BatchPersistenceBackend:    Backend(getEnvDefault("batch_persistence_backend", string(BackendMemory))),
		BatchJobStoragePath:        getEnvDefault("batch_job_storage_path", "data/batch_jobs"),
		BatchSQLitePath:            getEnvDefault("batch_sqlite_path", "data/batch.db"),
		BatchRecordRetryCount:      getEnvInt("batch_record_retry_count", 1),

		Host: getEnvDefault("host", "0.0.0.0"),
		Port: getEnvDefault("port", "8000"),
	}

	if v, ok := os.LookupEnv("batch_cost_per_1k_input_tokens"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.CostPer1KInputTokens = f
			cfg.CostConfigured = true
		}
	}
	if v, ok := os.LookupEnv("batch_cost_per_1k_output_tokens"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.CostPer1KOutputTokens = f
			cfg.CostConfigured = true
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.AnthropicAPIKey == "" {
		return NewValidationError("config", "anthropic_api_key", ErrMissingRequiredField)
	}
	if cfg.ClaudeRequestsPerMinute < 1 {
		return NewValidationError("config", "claude_requests_per_minute", ErrInvalidValue)
	}
	if cfg.BatchMaxConcurrentLLMCalls < 1 {
		return NewValidationError("config", "batch_max_concurrent_llm_calls", ErrInvalidValue)
	}
	switch cfg.BatchPersistenceBackend {
	case BackendMemory, BackendFile, BackendSQLite:
	default:
		return NewValidationError("config", "batch_persistence_backend", ErrInvalidValue)
	}
	if cfg.BatchRecordRetryCount < 0 {
		return NewValidationError("config", "batch_record_retry_count", ErrInvalidValue)
	}
	return nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
