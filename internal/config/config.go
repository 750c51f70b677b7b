package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Backend names accepted for events and storage
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all configuration for the inference service
type Config struct {
	// Server configuration
	HTTPPort int    `env:"MLSVC_HTTP_PORT" envDefault:"8000"`
	GRPCPort int    `env:"MLSVC_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Model configuration
	Model ModelConfig

	// Backends for prediction events and records
	EventsBackend  string `env:"EVENTS_BACKEND" envDefault:"memory"`
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`

	// Redis configuration, used only when a backend is "redis"
	Redis RedisConfig

	// Rate limiting for /predict
	RateLimit RateLimitConfig

	// Health monitor
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"30s"`

	// Timeouts
	Timeouts TimeoutConfig
}

// ModelConfig holds model artifact configuration
type ModelConfig struct {
	Version string `env:"MODEL_VERSION" envDefault:"v1.0.0"`
	Path    string `env:"MODEL_PATH" envDefault:"model.json"`

	// How long prediction records stay retrievable
	RecordTTL time.Duration `env:"PREDICTION_RECORD_TTL" envDefault:"24h"`

	// Cap on records held by the memory backend; the oldest are evicted
	RecordMax int `env:"PREDICTION_RECORD_MAX" envDefault:"100000"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// Approximate max entries per event stream
	StreamMaxLen int64 `env:"REDIS_STREAM_MAXLEN" envDefault:"10000"`
}

// RateLimitConfig holds per-client rate limiting for /predict
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"0"` // 0 disables limiting
	Burst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}
	if c.HTTPPort == c.GRPCPort {
		return fmt.Errorf("HTTP and gRPC ports must differ: %d", c.HTTPPort)
	}

	if c.Model.Version == "" {
		return fmt.Errorf("model version must not be empty")
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model path is required")
	}
	if c.Model.RecordMax < 1 {
		return fmt.Errorf("prediction record max must be at least 1: %d", c.Model.RecordMax)
	}

	for name, backend := range map[string]string{"events": c.EventsBackend, "storage": c.StorageBackend} {
		if backend != BackendMemory && backend != BackendRedis {
			return fmt.Errorf("unsupported %s backend: %s (must be memory or redis)", name, backend)
		}
	}
	if c.UsesRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate limit must not be negative: %v", c.RateLimit.RPS)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1")
	}

	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// UsesRedis reports whether any backend needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.EventsBackend == BackendRedis || c.StorageBackend == BackendRedis
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
