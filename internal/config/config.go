package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Authority AuthorityConfig `yaml:"authority" envconfig:"AUTHORITY"`
	Webhook   WebhookConfig   `yaml:"webhook" envconfig:"WEBHOOK"`
	License   LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig contains HTTP server configuration for the webhook
// receiver.
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" default:"1048576"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration for inbound
// webhook deliveries.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// AuthorityConfig describes how to reach the licensing authority's REST
// API.
type AuthorityConfig struct {
	BaseURL string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.licensing.example.com/v1"`
	APIKey  string        `yaml:"api_key" envconfig:"API_KEY"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"10s"`
}

// WebhookConfig contains webhook verification settings.
type WebhookConfig struct {
	Secret    string        `yaml:"secret" envconfig:"SECRET"`
	Tolerance time.Duration `yaml:"tolerance" envconfig:"TOLERANCE" default:"5m"`
}

// LicenseConfig contains validation engine policy settings.
type LicenseConfig struct {
	HardwareCap  int           `yaml:"hardware_cap" envconfig:"HARDWARE_CAP" default:"5"`
	CacheTTL     time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL" default:"5m"`
	CacheMaxSize int           `yaml:"cache_max_size" envconfig:"CACHE_MAX_SIZE" default:"1000"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/lcgate.log"`
}

// Load loads configuration from environment variables (prefix LCGATE),
// overlaid on an optional YAML config file.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = fileCfg
	}

	// Environment variables take precedence over file values.
	if err := envconfig.Process("LCGATE", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file on top of defaults.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks the configuration for values the application cannot
// run with.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Webhook.Tolerance <= 0 {
		return fmt.Errorf("webhook tolerance must be positive")
	}

	if c.License.HardwareCap <= 0 {
		return fmt.Errorf("license hardware cap must be positive")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	return nil
}

// configFilePath returns the first config file found in the common
// locations, or empty when only env vars apply.
func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Authority: AuthorityConfig{
			BaseURL: "https://api.licensing.example.com/v1",
			Timeout: 10 * time.Second,
		},
		Webhook: WebhookConfig{
			Tolerance: 5 * time.Minute,
		},
		License: LicenseConfig{
			HardwareCap:  5,
			CacheTTL:     5 * time.Minute,
			CacheMaxSize: 1000,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/lcgate.log",
		},
	}
}
