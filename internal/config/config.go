// Package config provides configuration loading for maskd.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. Sections cover the HTTP sidecar, observability, the masking
// engine, and allowlist file locations.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/maskd/pkg/masker"
)

// Config holds the complete maskd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	Masker        masker.Config       `koanf:"masker"`
	Allowlist     AllowlistConfig     `koanf:"allowlist"`
	Reporting     ReportingConfig     `koanf:"reporting"`

	// Secrets are literal values registered into the engine dictionary at
	// startup. The Secret type keeps them out of logs and serialization;
	// the 0600 permission check on the config file protects them at rest.
	Secrets []Secret `koanf:"secrets"`
}

// ServerConfig holds HTTP sidecar configuration.
type ServerConfig struct {
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64    `koanf:"max_body_bytes"`
	RateLimit       float64  `koanf:"rate_limit"` // requests per second per client
	RateBurst       int      `koanf:"rate_burst"`
}

// ObservabilityConfig holds logging and OTEL export settings consumed by
// the telemetry and logging packages at startup.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	Endpoint        string `koanf:"endpoint"`
	ServiceName     string `koanf:"service_name"`
	LogLevel        string `koanf:"log_level"`
	LogFormat       string `koanf:"log_format"`
}

// AllowlistConfig points at project and user allowlist files merged into
// the engine's allow list at startup.
type AllowlistConfig struct {
	ProjectPath string `koanf:"project_path"`
	UserPath    string `koanf:"user_path"`
}

// ReportingConfig bounds the engine's aggregate telemetry publishing.
type ReportingConfig struct {
	MaxUniqueCorrelatingIDs int      `koanf:"max_unique_correlating_ids"`
	MaxIDsPerEvent          int      `koanf:"max_ids_per_event"`
	PublishInterval         Duration `koanf:"publish_interval"`
}

// NewDefaultConfig returns the default maskd configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            9822,
			ShutdownTimeout: Duration(10 * time.Second),
			MaxBodyBytes:    4 * 1024 * 1024,
			RateLimit:       50,
			RateBurst:       100,
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: false,
			Endpoint:        "localhost:4317",
			ServiceName:     "maskd",
			LogLevel:        "info",
			LogFormat:       "json",
		},
		Masker: *masker.DefaultConfig(),
		Reporting: ReportingConfig{
			MaxUniqueCorrelatingIDs: 1000,
			MaxIDsPerEvent:          100,
			PublishInterval:         Duration(5 * time.Minute),
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}
	if c.Server.RateLimit <= 0 {
		return errors.New("rate limit must be positive")
	}
	if c.Server.RateBurst < 1 {
		return errors.New("rate burst must be at least 1")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	if c.Observability.EnableTelemetry && c.Observability.Endpoint == "" {
		return errors.New("endpoint required when telemetry is enabled")
	}

	if c.Reporting.MaxUniqueCorrelatingIDs < 1 {
		return errors.New("reporting.max_unique_correlating_ids must be at least 1")
	}
	if c.Reporting.MaxIDsPerEvent < 1 {
		return errors.New("reporting.max_ids_per_event must be at least 1")
	}

	// Compiles rules and allow list patterns; fails on malformed config
	// input (runtime AddRegex stays silently tolerant).
	if err := c.Masker.Validate(); err != nil {
		return fmt.Errorf("masker config: %w", err)
	}

	return nil
}
