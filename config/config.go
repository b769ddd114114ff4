// Package config loads process settings with layered precedence:
// defaults, then an optional YAML file, then NETPAY_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environments accepted in Environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds settings for cmd/server and cmd/netpay.
type Config struct {
	Addr            string        `yaml:"addr"`
	Environment     string        `yaml:"environment"`
	ParamsFile      string        `yaml:"params_file"` // JSON or YAML parameter document
	ParamsDB        string        `yaml:"params_db"`   // SQLite path; takes precedence over ParamsFile once seeded
	// ReloadInterval polls ParamsDB for changes; 0 disables.
	ReloadInterval  time.Duration `yaml:"params_reload_interval"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		Environment:     EnvDevelopment,
		MaxBodyBytes:    1 << 16,
		AllowedOrigins:  []string{"*"},
		ShutdownTimeout: 30 * time.Second,
		MetricsEnabled:  true,
	}
}

// Load builds the configuration. path may be empty; a missing file at a
// non-empty path is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML document at path; absent keys keep their
// current value.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnv("NETPAY_ADDR", c.Addr)
	c.Environment = getEnv("NETPAY_ENV", c.Environment)
	c.ParamsFile = getEnv("NETPAY_PARAMS_FILE", c.ParamsFile)
	c.ParamsDB = getEnv("NETPAY_PARAMS_DB", c.ParamsDB)
	c.ReloadInterval = getEnvDuration("NETPAY_PARAMS_RELOAD_INTERVAL", c.ReloadInterval)
	c.MaxBodyBytes = int64(getEnvInt("NETPAY_MAX_BODY_BYTES", int(c.MaxBodyBytes)))
	c.ShutdownTimeout = getEnvDuration("NETPAY_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.MetricsEnabled = getEnvBool("NETPAY_METRICS_ENABLED", c.MetricsEnabled)
	if origins := os.Getenv("NETPAY_ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
}

// Validate checks the merged settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("addr is required")
	}
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("max_body_bytes must be at least 1024")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if c.ReloadInterval < 0 {
		return fmt.Errorf("params_reload_interval must not be negative")
	}
	if c.Environment == EnvProduction {
		for _, origin := range c.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("allowed_origins must not contain \"*\" in production")
			}
		}
	}
	return nil
}

// IsProduction reports whether the production environment is selected.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// =============================================================================
// ENV HELPERS
// =============================================================================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
