// Package config provides unified configuration loading for the translation
// engine. Supports YAML files, environment variables, and defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the translation engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Translator    TranslatorConfig    `yaml:"translator"`
	Storage       StorageConfig       `yaml:"storage"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
	Auth          AuthConfig          `yaml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
}

// PipelineConfig holds the orchestrator settings for one translation run.
type PipelineConfig struct {
	UnitSizePages     int           `yaml:"unit_size_pages"`
	MaxChunkChars     int           `yaml:"max_chunk_chars"`
	ConcurrencyLimit  int           `yaml:"concurrency_limit"`
	PerTaskTimeout    time.Duration `yaml:"per_task_timeout"`
	MaxAttempts       int           `yaml:"max_attempts_per_unit"`
	RunDeadline       time.Duration `yaml:"run_deadline"`
	RetryBaseDelay    time.Duration `yaml:"retry_base_delay"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	EventBufferSize   int           `yaml:"event_buffer_size"`
}

// TranslatorConfig holds remote translation model settings. The API key is
// read from the environment only, never from the config file.
type TranslatorConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SourceLang     string        `yaml:"source_lang"`
	TargetLang     string        `yaml:"target_lang"`
	APIKey         string        `yaml:"-"`
}

// StorageConfig holds file store settings.
type StorageConfig struct {
	UploadDir     string        `yaml:"upload_dir"`
	OutputDir     string        `yaml:"output_dir"`
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// DatabaseConfig holds the job store settings.
type DatabaseConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// CacheConfig holds run-snapshot cache settings.
type CacheConfig struct {
	Driver string        `yaml:"driver"` // memory or redis
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"-"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8090,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     10 * time.Minute, // SSE responses outlive the run deadline
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
			MaxUploadBytes:   64 << 20,
		},
		Pipeline: PipelineConfig{
			UnitSizePages:     20,
			MaxChunkChars:     3000,
			ConcurrencyLimit:  3,
			PerTaskTimeout:    60 * time.Second,
			MaxAttempts:       2,
			RunDeadline:       290 * time.Second,
			RetryBaseDelay:    time.Second,
			HeartbeatInterval: 10 * time.Second,
			EventBufferSize:   256,
		},
		Translator: TranslatorConfig{
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			Model:          "google/gemini-2.5-flash-preview-09-2025",
			RequestTimeout: 90 * time.Second,
			SourceLang:     "auto",
			TargetLang:     "en",
		},
		Storage: StorageConfig{
			UploadDir:     "/tmp/translation-engine/uploads",
			OutputDir:     "/tmp/translation-engine/outputs",
			Retention:     24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Database: DatabaseConfig{
			Path:         "/tmp/translation-engine/jobs.db",
			MaxOpenConns: 1,
		},
		Cache: CacheConfig{
			Driver: "memory",
			TTL:    30 * time.Minute,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
		Auth: AuthConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Pipeline.UnitSizePages < 1 {
		return fmt.Errorf("unit_size_pages must be >= 1")
	}

	if c.Pipeline.ConcurrencyLimit < 1 {
		return fmt.Errorf("concurrency_limit must be >= 1")
	}

	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts_per_unit must be >= 1")
	}

	if c.Pipeline.MaxChunkChars < 1 {
		return fmt.Errorf("max_chunk_chars must be >= 1")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth enabled but API_AUTH_KEY not set")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Translator.APIKey = v
	}

	if v := os.Getenv("TRANSLATOR_BASE_URL"); v != "" {
		cfg.Translator.BaseURL = v
	}

	if v := os.Getenv("TRANSLATOR_MODEL"); v != "" {
		cfg.Translator.Model = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("API_AUTH_KEY"); v != "" {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKey = v
	}
}
