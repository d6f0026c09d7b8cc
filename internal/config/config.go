// Package config loads studysync configuration with the precedence
// chain defaults → YAML file → environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Sync     SyncConfig     `yaml:"sync"`
	Server   ServerConfig   `yaml:"server"`
	Prune    PruneConfig    `yaml:"prune"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig contains local store settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SyncConfig contains remote endpoint settings for the sync client.
type SyncConfig struct {
	ServerURL string   `yaml:"server_url"`
	TokenPath string   `yaml:"token_path"`
	Timeout   Duration `yaml:"timeout"`
}

// ServerConfig contains settings for the reference server (`serve`).
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	JWTSecret       string   `yaml:"-"` // env-only, never in YAML
}

// PruneConfig contains tombstone retention settings.
type PruneConfig struct {
	Retention Duration `yaml:"retention"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("STUDYSYNC_CONFIG_PATH", "config/studysync.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/studysync.db",
		},
		Sync: SyncConfig{
			TokenPath: "data/tokens.json",
			Timeout:   Duration(30 * time.Second),
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Prune: PruneConfig{
			Retention: Duration(90 * 24 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("STUDYSYNC_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Sync
	if v := os.Getenv("STUDYSYNC_SERVER_URL"); v != "" {
		cfg.Sync.ServerURL = v
	}
	if v := os.Getenv("STUDYSYNC_TOKEN_PATH"); v != "" {
		cfg.Sync.TokenPath = v
	}
	if v := os.Getenv("STUDYSYNC_SYNC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sync.Timeout = Duration(d)
		}
	}

	// Server
	if v := os.Getenv("STUDYSYNC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("STUDYSYNC_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = Duration(d)
		}
	}
	if v := os.Getenv("STUDYSYNC_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = Duration(d)
		}
	}
	if v := os.Getenv("STUDYSYNC_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = Duration(d)
		}
	}
	if v := os.Getenv("STUDYSYNC_JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}

	// Prune
	if v := os.Getenv("STUDYSYNC_PRUNE_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Prune.Retention = Duration(d)
		}
	}

	// Log
	if v := os.Getenv("STUDYSYNC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STUDYSYNC_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// validate checks configuration invariants that hold for every command.
// The JWT secret is checked by `serve` itself, since no other command
// needs it.
func (c *Config) validate() error {
	if c.Database.Path == "" {
		return errors.New("database path must not be empty")
	}
	if time.Duration(c.Prune.Retention) <= 0 {
		return errors.New("prune retention must be positive")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
