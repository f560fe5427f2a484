package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/forgo/muster/internal/i18n"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Log         LogConfig
	JWT         JWTConfig
	Email       EmailConfig
	Sweeper     SweeperConfig
	Dispatcher  DispatcherConfig
	RateLimit   RateLimitConfig
	Idempotency IdempotencyConfig
	Telemetry   TelemetryConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `env:"SERVER_PORT"             envDefault:"8080"`
	Env             string        `env:"SERVER_ENV"              envDefault:"development"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT"     envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT"    envDefault:"0s"` // SSE streams stay open
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS"    envDefault:"http://localhost:3000" envSeparator:","`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// JWTConfig holds bearer token validation settings
type JWTConfig struct {
	PrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH"`
	PublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH" envDefault:"./keys/public.pem"`
	Expiration     time.Duration `env:"JWT_EXPIRATION"      envDefault:"24h"`
	Issuer         string        `env:"JWT_ISSUER"          envDefault:"muster.forgo.software"`
}

// EmailConfig holds promotion e-mail settings
type EmailConfig struct {
	Enabled      bool   `env:"EMAIL_ENABLED"        envDefault:"false"`
	ResendAPIKey string `env:"RESEND_API_KEY"`
	From         string `env:"EMAIL_FROM"           envDefault:"Muster <noreply@muster.forgo.software>"`
	Language     string `env:"EMAIL_LANGUAGE"       envDefault:"en-US"`
}

// SweeperConfig holds roster cleanup settings. A zero retention disables
// that rule.
type SweeperConfig struct {
	Interval        time.Duration `env:"SWEEPER_INTERVAL"         envDefault:"10m"`
	ClosedRetention time.Duration `env:"SWEEPER_CLOSED_RETENTION" envDefault:"24h"`
	MaxAge          time.Duration `env:"SWEEPER_MAX_AGE"          envDefault:"720h"`
}

// DispatcherConfig holds promotion delivery settings
type DispatcherConfig struct {
	QueueSize int `env:"DISPATCHER_QUEUE_SIZE" envDefault:"256"`
}

// RateLimitConfig holds per-client rate limiting settings
type RateLimitConfig struct {
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS"   envDefault:"10"`
	Burst             int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

// IdempotencyConfig holds Idempotency-Key replay settings
type IdempotencyConfig struct {
	TTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

// TelemetryConfig holds tracing settings. Tracing is off without an endpoint.
type TelemetryConfig struct {
	Endpoint    string  `env:"OTEL_EXPORTER_ENDPOINT"`
	ServiceName string  `env:"OTEL_SERVICE_NAME"     envDefault:"muster"`
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO"     envDefault:"1"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// SlogLevel returns the configured log level
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_SHUTDOWN_TIMEOUT must be positive"))
	}

	// Log validation
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got '%s'", c.Log.Level))
	}

	// JWT validation
	if c.JWT.PublicKeyPath == "" && c.JWT.PrivateKeyPath == "" {
		errs = append(errs, errors.New("JWT_PUBLIC_KEY_PATH or JWT_PRIVATE_KEY_PATH is required"))
	}
	if c.JWT.Issuer == "" {
		errs = append(errs, errors.New("JWT_ISSUER is required"))
	}
	if c.JWT.Expiration <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION must be positive"))
	}

	// Email validation
	if c.Email.Enabled {
		var missing []string
		if c.Email.ResendAPIKey == "" {
			missing = append(missing, "RESEND_API_KEY")
		}
		if c.Email.From == "" {
			missing = append(missing, "EMAIL_FROM")
		}
		if len(missing) > 0 {
			errs = append(errs, fmt.Errorf("email enabled but missing: %s", strings.Join(missing, ", ")))
		}
	}
	if _, ok := i18n.ParseTag(c.Email.Language); !ok {
		errs = append(errs, fmt.Errorf("EMAIL_LANGUAGE '%s' is not supported", c.Email.Language))
	}

	// Job validation
	if c.Sweeper.Interval <= 0 {
		errs = append(errs, errors.New("SWEEPER_INTERVAL must be positive"))
	}
	if c.Sweeper.ClosedRetention < 0 || c.Sweeper.MaxAge < 0 {
		errs = append(errs, errors.New("SWEEPER_CLOSED_RETENTION and SWEEPER_MAX_AGE must not be negative"))
	}
	if c.Dispatcher.QueueSize <= 0 {
		errs = append(errs, errors.New("DISPATCHER_QUEUE_SIZE must be positive"))
	}

	// Middleware validation
	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must be positive"))
	}
	if c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST must be positive"))
	}
	if c.Idempotency.TTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}

	// Telemetry validation
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATIO must be between 0 and 1, got %v", c.Telemetry.SampleRatio))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
