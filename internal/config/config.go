package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL      = "http://localhost:5000/api/v1"
	DefaultStore       = "file"
	DefaultExpiryCheck = "@every 30s"
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "console"
)

// Config holds all configuration for the client
type Config struct {
	// API Configuration
	API APIConfig `yaml:"api"`

	// Credential store Configuration
	Store StoreConfig `yaml:"store"`

	// Session Configuration
	Session SessionConfig `yaml:"session"`

	// Logging Configuration
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds the rental API connection settings
type APIConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"` // 0 = no client-side timeout
}

// StoreConfig selects where the session record is persisted
type StoreConfig struct {
	Kind string `yaml:"kind"` // file, keyring, sqlite, memory
	Path string `yaml:"path"`
}

// SessionConfig holds session lifecycle settings
type SessionConfig struct {
	ExpiryCheck string `yaml:"expiry_check"` // cron spec
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API:     APIConfig{URL: DefaultAPIURL},
		Store:   StoreConfig{Kind: DefaultStore},
		Session: SessionConfig{ExpiryCheck: DefaultExpiryCheck},
		Logging: LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// FilePath returns the YAML config location: $CARRENT_CONFIG, or
// ~/.config/carrent/config.yaml.
func FilePath() (string, error) {
	if p := os.Getenv("CARRENT_CONFIG"); p != "" {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "carrent", "config.yaml"), nil
}

// Load loads configuration from the YAML file and environment variables.
// Environment variables win over the file.
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := Default()

	path, err := FilePath()
	if err != nil {
		return nil, err
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges the YAML file at path into c. A missing file is not an error.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CARRENT_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("CARRENT_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CARRENT_HTTP_TIMEOUT %q: %w", v, err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("CARRENT_STORE"); v != "" {
		c.Store.Kind = v
	}
	if v := os.Getenv("CARRENT_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("CARRENT_EXPIRY_CHECK"); v != "" {
		c.Session.ExpiryCheck = v
	}
	if v := os.Getenv("CARRENT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CARRENT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	return nil
}
