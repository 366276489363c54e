package config

import (
	"fmt"
	"time"

	"github.com/kbukum/jobrunner/logger"
	"github.com/kbukum/jobrunner/validation"
)

var environments = []string{"development", "staging", "production"}

// ServiceConfig is the process-level configuration of the jobrunner binary.
// It is separate from the pipeline document, which is read by Store.
type ServiceConfig struct {
	Name        string          `yaml:"name" mapstructure:"name"`
	Environment string          `yaml:"environment" mapstructure:"environment"`
	Version     string          `yaml:"version" mapstructure:"version"`
	Debug       bool            `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config   `yaml:"logging" mapstructure:"logging"`
	Telemetry   TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Status      StatusConfig    `yaml:"status" mapstructure:"status"`
}

// TelemetryConfig enables OpenTelemetry export.
type TelemetryConfig struct {
	Tracing    bool          `yaml:"tracing" mapstructure:"tracing"`
	Metrics    bool          `yaml:"metrics" mapstructure:"metrics"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
}

// StatusConfig configures the status HTTP API served in background mode.
type StatusConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c StatusConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultServiceConfig returns the configuration used when no file is found.
func DefaultServiceConfig() ServiceConfig {
	cfg := ServiceConfig{Name: "jobrunner"}
	cfg.ApplyDefaults()
	return cfg
}

// GetServiceConfig returns the receiver; it lets embedding structs satisfy
// the bootstrap configuration interface.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "jobrunner"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()

	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
	if c.Telemetry.Interval == 0 {
		c.Telemetry.Interval = 15 * time.Second
	}

	if c.Status.Host == "" {
		c.Status.Host = "0.0.0.0"
	}
	if c.Status.Port == 0 {
		c.Status.Port = 8080
	}
	if c.Status.ReadTimeout == 0 {
		c.Status.ReadTimeout = 10 * time.Second
	}
	if c.Status.ShutdownTimeout == 0 {
		c.Status.ShutdownTimeout = 5 * time.Second
	}
}

// Validate validates the configuration.
func (c *ServiceConfig) Validate() error {
	if err := validation.New().
		Required("name", c.Name).
		Required("environment", c.Environment).
		OneOf("environment", c.Environment, environments).
		Err(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := validation.Validate(c.Telemetry); err != nil {
		return fmt.Errorf("config.telemetry: %w", err)
	}
	if err := validation.Validate(c.Status); err != nil {
		return fmt.Errorf("config.status: %w", err)
	}
	return nil
}
