package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BaseURL       string        `yaml:"base_url,omitempty"`
	Token         string        `yaml:"token,omitempty"`
	WebhookSecret string        `yaml:"webhook_secret,omitempty"`
	JWTSecret     string        `yaml:"jwt_secret,omitempty"`
	DatabaseURL   string        `yaml:"database_url,omitempty"`
	RedisURL      string        `yaml:"redis_url,omitempty"`
	LockFile      string        `yaml:"lock_file,omitempty"`
	Timeouts      TimeoutConfig `yaml:"timeouts,omitempty"`
}

// TimeoutConfig values are time.ParseDuration strings ("5m", "30s").
type TimeoutConfig struct {
	HTTP   string `yaml:"http,omitempty"`   // default: 5m
	Watch  string `yaml:"watch,omitempty"`  // default: 2h
	Upload string `yaml:"upload,omitempty"` // default: 30m
}

const (
	DefaultBaseURL  = "http://localhost:8080"
	DefaultLockFile = "lc-reconcile.lock"

	EnvBaseURL       = "LC_BASE_URL"
	EnvToken         = "LC_TOKEN"
	EnvWebhookSecret = "LC_WEBHOOK_SECRET"
	EnvJWTSecret     = "JWT_SECRET"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvRedisURL      = "REDIS_URL"

	DefaultHTTPTimeout   = 5 * time.Minute
	DefaultWatchTimeout  = 2 * time.Hour
	DefaultUploadTimeout = 30 * time.Minute
)

// Keys lists the settings accepted by Set, in display order.
var Keys = []string{"base_url", "token", "webhook_secret", "jwt_secret", "database_url", "redis_url", "lock_file"}

func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lc"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Load() (*Config, error) {
	cfg := &Config{BaseURL: DefaultBaseURL}

	path, err := Path()
	if err == nil {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	// Environment variables take precedence over the config file
	override(&cfg.BaseURL, EnvBaseURL)
	override(&cfg.Token, EnvToken)
	override(&cfg.WebhookSecret, EnvWebhookSecret)
	override(&cfg.JWTSecret, EnvJWTSecret)
	override(&cfg.DatabaseURL, EnvDatabaseURL)
	override(&cfg.RedisURL, EnvRedisURL)

	return cfg, nil
}

func override(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := Path()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Get returns the value stored under key.
func (c *Config) Get(key string) (string, error) {
	p, err := c.field(key)
	if err != nil {
		return "", err
	}
	return *p, nil
}

// Set stores value under key. It does not save.
func (c *Config) Set(key, value string) error {
	p, err := c.field(key)
	if err != nil {
		return err
	}
	*p = value
	return nil
}

func (c *Config) field(key string) (*string, error) {
	switch key {
	case "base_url":
		return &c.BaseURL, nil
	case "token":
		return &c.Token, nil
	case "webhook_secret":
		return &c.WebhookSecret, nil
	case "jwt_secret":
		return &c.JWTSecret, nil
	case "database_url":
		return &c.DatabaseURL, nil
	case "redis_url":
		return &c.RedisURL, nil
	case "lock_file":
		return &c.LockFile, nil
	}
	return nil, fmt.Errorf("unknown config key %q", key)
}

func (c *Config) IsAuthenticated() bool {
	return c.Token != ""
}

// LockPath is where `lc reconcile` takes its host-wide lock.
func (c *Config) LockPath() string {
	if c.LockFile != "" {
		return c.LockFile
	}
	return filepath.Join(os.TempDir(), DefaultLockFile)
}

// GetTimeout returns the configured timeout for name, or its default.
// Valid names: "http", "watch", "upload".
func (c *Config) GetTimeout(name string) time.Duration {
	var configValue string
	var defaultValue time.Duration

	switch name {
	case "http":
		configValue, defaultValue = c.Timeouts.HTTP, DefaultHTTPTimeout
	case "watch":
		configValue, defaultValue = c.Timeouts.Watch, DefaultWatchTimeout
	case "upload":
		configValue, defaultValue = c.Timeouts.Upload, DefaultUploadTimeout
	default:
		return DefaultHTTPTimeout
	}

	if configValue == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(configValue)
	if err != nil {
		return defaultValue
	}
	return parsed
}
