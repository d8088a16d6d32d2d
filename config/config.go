package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Version string       `yaml:"version"`
	AWS     AWSConfig    `yaml:"aws"`
	Scan    ScanConfig   `yaml:"scan,omitempty"`
	Store   StoreConfig  `yaml:"store,omitempty"`
	Notify  NotifyConfig `yaml:"notify,omitempty"`
	Server  ServerConfig `yaml:"server,omitempty"`
	Log     LogConfig    `yaml:"log,omitempty"`
}

// AWSConfig holds cloud provider settings
type AWSConfig struct {
	Regions []string `yaml:"regions"`
	Profile string   `yaml:"profile,omitempty"`
}

// ScanConfig bounds the sweep
type ScanConfig struct {
	MaxInFlight     int    `yaml:"max_in_flight"`
	ProbeTimeoutStr string `yaml:"probe_timeout"`
	NotifyEmpty     bool   `yaml:"notify_empty"`
	IdleDays        int    `yaml:"idle_days"`
	HistoryLength   int    `yaml:"history_length"`

	ProbeTimeout time.Duration `yaml:"-"`
}

// StoreConfig selects the schedule store backend
type StoreConfig struct {
	Backend   string `yaml:"backend"` // "bolt" or "redis"
	Path      string `yaml:"path,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
}

// NotifyConfig holds notification sender settings
type NotifyConfig struct {
	SlackWebhookURL string     `yaml:"slack_webhook_url,omitempty"`
	Email           SMTPConfig `yaml:"email,omitempty"`
}

// SMTPConfig holds email delivery settings
type SMTPConfig struct {
	Host       string   `yaml:"host,omitempty"`
	Port       int      `yaml:"port,omitempty"`
	Username   string   `yaml:"username,omitempty"`
	Password   string   `yaml:"password,omitempty"`
	Sender     string   `yaml:"sender,omitempty"`
	Recipients []string `yaml:"recipients,omitempty"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns a config usable without a file, for flag-only invocations
func Default() *Config {
	cfg := &Config{
		Version: "1",
		AWS:     AWSConfig{Regions: []string{"us-east-1"}},
	}
	cfg.applyDefaults()
	_ = cfg.parseDurations() // defaults always parse
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Scan.MaxInFlight == 0 {
		c.Scan.MaxInFlight = 8
	}
	if c.Scan.ProbeTimeoutStr == "" {
		c.Scan.ProbeTimeoutStr = "30s"
	}
	if c.Scan.IdleDays == 0 {
		c.Scan.IdleDays = 30
	}
	if c.Scan.HistoryLength == 0 {
		c.Scan.HistoryLength = 50
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "bolt"
	}
	if c.Store.Path == "" {
		c.Store.Path = "./cleaner.db"
	}
	if c.Notify.Email.Port == 0 {
		c.Notify.Email.Port = 587
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8084"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) parseDurations() error {
	d, err := time.ParseDuration(c.Scan.ProbeTimeoutStr)
	if err != nil {
		return fmt.Errorf("parse scan.probe_timeout %q: %w", c.Scan.ProbeTimeoutStr, err)
	}
	c.Scan.ProbeTimeout = d
	return nil
}

// Validate ensures config has required fields
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if len(c.AWS.Regions) == 0 {
		return fmt.Errorf("at least one AWS region is required")
	}
	seen := make(map[string]bool)
	for _, r := range c.AWS.Regions {
		if seen[r] {
			return fmt.Errorf("duplicate region %q", r)
		}
		seen[r] = true
	}
	if c.Scan.MaxInFlight < 1 {
		return fmt.Errorf("scan.max_in_flight must be >= 1")
	}
	if c.Scan.ProbeTimeout <= 0 {
		return fmt.Errorf("scan.probe_timeout must be > 0")
	}
	switch c.Store.Backend {
	case "bolt":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the bolt backend")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend must be bolt or redis, got %q", c.Store.Backend)
	}
	return nil
}

// SlackConfigured reports whether the Slack sender can be built
func (c *Config) SlackConfigured() bool {
	return c.Notify.SlackWebhookURL != ""
}

// EmailConfigured reports whether the email sender can be built
func (c *Config) EmailConfigured() bool {
	e := c.Notify.Email
	return e.Host != "" && e.Username != "" && e.Password != "" && len(e.Recipients) > 0
}
