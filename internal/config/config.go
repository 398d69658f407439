package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/ai4/internal/shared/paths"
)

// Config holds all application configuration.
type Config struct {
	Home      string `envconfig:"AI4_HOME" default:"~/.ai4"`
	Server    ServerConfig
	Client    ClientConfig
	Billing   BillingConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `envconfig:"AI4_ADDR" default:"127.0.0.1:8444"`
	ShutdownTimeout time.Duration `envconfig:"AI4_SHUTDOWN_TIMEOUT" default:"5s"`
}

// ClientConfig holds remote bridge client configuration.
type ClientConfig struct {
	Remote  string        `envconfig:"AI4_REMOTE"`
	Timeout time.Duration `envconfig:"AI4_CLIENT_TIMEOUT" default:"10s"`
	Retries int           `envconfig:"AI4_CLIENT_RETRIES" default:"3"`
}

// BillingConfig holds the inference price.
type BillingConfig struct {
	Payer string `envconfig:"AI4_PAYER" default:"you"`
	Cost  int64  `envconfig:"AI4_INFER_COST" default:"1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"warn"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	// GlobalRPS caps all clients together; zero disables the cap
	GlobalRPS int `envconfig:"RATE_LIMIT_GLOBAL_RPS" default:"0"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Home: paths.DefaultHome,
		Server: ServerConfig{
			Addr:            "127.0.0.1:8444",
			ShutdownTimeout: 5 * time.Second,
		},
		Client: ClientConfig{
			Timeout: 10 * time.Second,
			Retries: 3,
		},
		Billing: BillingConfig{
			Payer: "you",
			Cost:  1,
		},
		Logging: LogConfig{
			Level:       "warn",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Home == "" {
		return fmt.Errorf("AI4_HOME cannot be empty")
	}
	if c.Billing.Cost < 0 {
		return fmt.Errorf("AI4_INFER_COST must be non-negative, got %d", c.Billing.Cost)
	}
	if c.Client.Retries < 0 {
		return fmt.Errorf("AI4_CLIENT_RETRIES must be non-negative, got %d", c.Client.Retries)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit needs positive RATE_LIMIT_RPS and RATE_LIMIT_BURST")
	}
	if c.RateLimit.GlobalRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_GLOBAL_RPS must be non-negative, got %d", c.RateLimit.GlobalRPS)
	}
	return nil
}

// Layout resolves the base directory layout.
func (c *Config) Layout() (paths.Layout, error) {
	return paths.NewLayout(c.Home)
}
