// Package config loads and validates the loadkit configuration from a
// YAML file with environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Loading  LoadingConfig  `yaml:"loading"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	NATS     NATSConfig     `yaml:"nats"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig configures the remote catalog API client. Durations are
// time.ParseDuration strings, validated at load time.
type APIConfig struct {
	BaseURL string      `yaml:"base_url"`
	Timeout string      `yaml:"timeout"`
	Retry   RetryConfig `yaml:"retry"`
}

// RetryConfig configures transient-failure backoff for the API client.
type RetryConfig struct {
	Mode       string `yaml:"mode"` // fixed|linear|exponential
	Initial    string `yaml:"initial"`
	Max        string `yaml:"max"`
	MaxRetries int    `yaml:"max_retries"`
}

// DatabaseConfig configures the local SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoadingConfig configures loading-state behavior.
type LoadingConfig struct {
	// MinimumFloor is the shortest time a subject stays in Loading after a
	// remote fetch, to avoid loading-state flicker on fast networks.
	// "0s" disables the floor (test mode).
	MinimumFloor string `yaml:"minimum_floor"`
}

// DaemonConfig configures the background refresh daemon.
type DaemonConfig struct {
	RefreshInterval string `yaml:"refresh_interval"`
	MetricsAddr     string `yaml:"metrics_addr"`
}

// NATSConfig configures the optional state-change event publisher.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://restcountries.com/v3.1",
			Timeout: "15s",
			Retry: RetryConfig{
				Mode:       "linear",
				Initial:    "1s",
				Max:        "30s",
				MaxRetries: 2,
			},
		},
		Database: DatabaseConfig{Path: "loadkit.db"},
		Loading:  LoadingConfig{MinimumFloor: "500ms"},
		Daemon: DaemonConfig{
			RefreshInterval: "1h",
			MetricsAddr:     ":9180",
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
			Subject: "loadkit.state",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides, and validates the result. A missing file is not an error;
// defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env + defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays LOADKIT_* environment variables onto the config.
func (c *Config) applyEnv() {
	if v := os.Getenv("LOADKIT_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("LOADKIT_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LOADKIT_NATS_URL"); v != "" {
		c.NATS.URL = v
		c.NATS.Enabled = true
	}
	if v := os.Getenv("LOADKIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOADKIT_MINIMUM_FLOOR"); v != "" {
		c.Loading.MinimumFloor = v
	}
	if v := os.Getenv("LOADKIT_REFRESH_INTERVAL"); v != "" {
		c.Daemon.RefreshInterval = v
	}
}

// Validate checks invariants the rest of the system relies on. Duration
// strings are parse-checked here so later call sites can parse them
// without handling errors.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	timeout, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return fmt.Errorf("invalid api.timeout: %s: %w", c.API.Timeout, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("api.timeout must be >0")
	}

	switch c.API.Retry.Mode {
	case "fixed", "linear", "exponential":
	default:
		return fmt.Errorf("invalid api.retry.mode: %s (allowed: fixed|linear|exponential)", c.API.Retry.Mode)
	}
	initial, err := time.ParseDuration(c.API.Retry.Initial)
	if err != nil {
		return fmt.Errorf("invalid api.retry.initial: %s: %w", c.API.Retry.Initial, err)
	}
	maxDelay, err := time.ParseDuration(c.API.Retry.Max)
	if err != nil {
		return fmt.Errorf("invalid api.retry.max: %s: %w", c.API.Retry.Max, err)
	}
	if maxDelay < initial {
		return fmt.Errorf("api.retry.max (%s) must be >= api.retry.initial (%s)", c.API.Retry.Max, c.API.Retry.Initial)
	}
	if c.API.Retry.MaxRetries < 0 {
		return fmt.Errorf("api.retry.max_retries must be >=0")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	floor, err := time.ParseDuration(c.Loading.MinimumFloor)
	if err != nil {
		return fmt.Errorf("invalid loading.minimum_floor: %s: %w", c.Loading.MinimumFloor, err)
	}
	if floor < 0 {
		return fmt.Errorf("loading.minimum_floor must be >=0")
	}

	interval, err := time.ParseDuration(c.Daemon.RefreshInterval)
	if err != nil {
		return fmt.Errorf("invalid daemon.refresh_interval: %s: %w", c.Daemon.RefreshInterval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("daemon.refresh_interval must be >0")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug|info|warn|error, got %q", c.Logging.Level)
	}
	return nil
}
