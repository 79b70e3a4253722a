package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for btaudiod.
// All configuration is loaded from YAML and can be overridden by
// environment variables.
type Config struct {
	Policy    PolicyConfig    `yaml:"policy"`
	Blocklist BlocklistConfig `yaml:"blocklist"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PolicyConfig contains the policy engine timing knobs. Durations are in
// milliseconds to match how operators reason about them.
type PolicyConfig struct {
	ConnWatchPeriodMS    int `yaml:"conn_watch_period_ms"`
	ConnWatchMaxRetries  int `yaml:"conn_watch_max_retries"`
	ProfileSwitchDelayMS int `yaml:"profile_switch_delay_ms"`
	CommandQueueSize     int `yaml:"command_queue_size"`
}

// BlocklistConfig contains the HFP blocklist store settings.
type BlocklistConfig struct {
	Path string `yaml:"path"`
}

// TelemetryConfig contains MQTT broker connection settings.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`
}

// MetricsConfig contains InfluxDB connection settings.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The loading order is:
//  1. Default values
//  2. YAML file values
//  3. Environment variables (BTAUDIOD_SECTION_KEY)
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration, env overrides applied. Used
// when no config file is given.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults. The policy timing
// defaults match the engine's own constants.
func defaultConfig() *Config {
	return &Config{
		Policy: PolicyConfig{
			ConnWatchPeriodMS:    2000,
			ConnWatchMaxRetries:  30,
			ProfileSwitchDelayMS: 500,
			CommandQueueSize:     64,
		},
		Blocklist: BlocklistConfig{
			Path: "./data/hfp_blocklist.db",
		},
		Telemetry: TelemetryConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "btaudiod",
			QoS:      1,
		},
		Metrics: MetricsConfig{
			URL:           "http://localhost:8086",
			Bucket:        "btaudio",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides.
// Variables follow the pattern BTAUDIOD_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BTAUDIOD_BLOCKLIST_PATH"); v != "" {
		cfg.Blocklist.Path = v
	}

	if v := os.Getenv("BTAUDIOD_TELEMETRY_BROKER"); v != "" {
		cfg.Telemetry.Broker = v
	}
	if v := os.Getenv("BTAUDIOD_TELEMETRY_USERNAME"); v != "" {
		cfg.Telemetry.Username = v
	}
	if v := os.Getenv("BTAUDIOD_TELEMETRY_PASSWORD"); v != "" {
		cfg.Telemetry.Password = v
	}

	if v := os.Getenv("BTAUDIOD_METRICS_URL"); v != "" {
		cfg.Metrics.URL = v
	}
	if v := os.Getenv("BTAUDIOD_METRICS_TOKEN"); v != "" {
		cfg.Metrics.Token = v
	}

	if v := os.Getenv("BTAUDIOD_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("BTAUDIOD_POLICY_CONN_WATCH_PERIOD_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Policy.ConnWatchPeriodMS = n
		}
	}
	if v := os.Getenv("BTAUDIOD_POLICY_CONN_WATCH_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Policy.ConnWatchMaxRetries = n
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Policy.ConnWatchPeriodMS <= 0 {
		errs = append(errs, "policy.conn_watch_period_ms must be positive")
	}
	if c.Policy.ConnWatchMaxRetries <= 0 {
		errs = append(errs, "policy.conn_watch_max_retries must be positive")
	}
	if c.Policy.ProfileSwitchDelayMS <= 0 {
		errs = append(errs, "policy.profile_switch_delay_ms must be positive")
	}
	if c.Policy.CommandQueueSize <= 0 {
		errs = append(errs, "policy.command_queue_size must be positive")
	}

	if c.Blocklist.Path == "" {
		errs = append(errs, "blocklist.path is required")
	}

	if c.Telemetry.QoS < 0 || c.Telemetry.QoS > 2 {
		errs = append(errs, "telemetry.qos must be 0, 1, or 2")
	}
	if c.Telemetry.Enabled && c.Telemetry.Broker == "" {
		errs = append(errs, "telemetry.broker is required when telemetry is enabled")
	}

	if c.Metrics.Enabled {
		if c.Metrics.URL == "" {
			errs = append(errs, "metrics.url is required when metrics are enabled")
		}
		if c.Metrics.Org == "" {
			errs = append(errs, "metrics.org is required when metrics are enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ConnWatchPeriod returns the connection watch poll interval as a Duration.
func (c *Config) ConnWatchPeriod() time.Duration {
	return time.Duration(c.Policy.ConnWatchPeriodMS) * time.Millisecond
}

// ProfileSwitchDelay returns the output resume debounce as a Duration.
func (c *Config) ProfileSwitchDelay() time.Duration {
	return time.Duration(c.Policy.ProfileSwitchDelayMS) * time.Millisecond
}

// MetricsFlushInterval returns the metrics flush interval as a Duration.
func (c *Config) MetricsFlushInterval() time.Duration {
	return time.Duration(c.Metrics.FlushInterval) * time.Second
}
