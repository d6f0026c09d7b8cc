package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "studysync.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Point at a nonexistent file so only defaults apply
	t.Setenv("STUDYSYNC_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "data/studysync.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Sync.TokenPath != "data/tokens.json" {
		t.Errorf("token path = %q", cfg.Sync.TokenPath)
	}
	if time.Duration(cfg.Sync.Timeout) != 30*time.Second {
		t.Errorf("sync timeout = %v", time.Duration(cfg.Sync.Timeout))
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if time.Duration(cfg.Prune.Retention) != 90*24*time.Hour {
		t.Errorf("retention = %v", time.Duration(cfg.Prune.Retention))
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadFromFile_OverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
database:
  path: /tmp/custom.db
sync:
  server_url: https://sync.example.com
  timeout: 5s
server:
  port: 9090
prune:
  retention: 720h
log:
  level: debug
  format: text
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Database.Path != "/tmp/custom.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Sync.ServerURL != "https://sync.example.com" {
		t.Errorf("server url = %q", cfg.Sync.ServerURL)
	}
	if time.Duration(cfg.Sync.Timeout) != 5*time.Second {
		t.Errorf("sync timeout = %v", time.Duration(cfg.Sync.Timeout))
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if time.Duration(cfg.Prune.Retention) != 720*time.Hour {
		t.Errorf("retention = %v", time.Duration(cfg.Prune.Retention))
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}

	// Fields absent from the file keep their defaults
	if cfg.Sync.TokenPath != "data/tokens.json" {
		t.Errorf("token path = %q, want default", cfg.Sync.TokenPath)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
database:
  path: /from/file.db
sync:
  server_url: https://file.example.com
`)
	t.Setenv("STUDYSYNC_CONFIG_PATH", path)
	t.Setenv("STUDYSYNC_DB_PATH", "/from/env.db")
	t.Setenv("STUDYSYNC_SERVER_URL", "https://env.example.com")
	t.Setenv("STUDYSYNC_SYNC_TIMEOUT", "90s")
	t.Setenv("STUDYSYNC_PORT", "3000")
	t.Setenv("STUDYSYNC_JWT_SECRET", "hunter2hunter2")
	t.Setenv("STUDYSYNC_PRUNE_RETENTION", "24h")
	t.Setenv("STUDYSYNC_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/from/env.db" {
		t.Errorf("db path = %q, want env value", cfg.Database.Path)
	}
	if cfg.Sync.ServerURL != "https://env.example.com" {
		t.Errorf("server url = %q, want env value", cfg.Sync.ServerURL)
	}
	if time.Duration(cfg.Sync.Timeout) != 90*time.Second {
		t.Errorf("sync timeout = %v", time.Duration(cfg.Sync.Timeout))
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.JWTSecret != "hunter2hunter2" {
		t.Errorf("jwt secret = %q", cfg.Server.JWTSecret)
	}
	if time.Duration(cfg.Prune.Retention) != 24*time.Hour {
		t.Errorf("retention = %v", time.Duration(cfg.Prune.Retention))
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "database: [not a mapping")

	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile accepted malformed YAML")
	}
}

func TestLoadFromFile_InvalidDuration(t *testing.T) {
	path := writeConfigFile(t, `
sync:
  timeout: banana
`)

	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile accepted a malformed duration")
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"zero retention", func(c *Config) { c.Prune.Retention = 0 }},
		{"negative retention", func(c *Config) { c.Prune.Retention = Duration(-time.Hour) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newDefaults()
			tt.mutate(cfg)
			if err := cfg.validate(); err == nil {
				t.Error("validate accepted a bad config")
			}
		})
	}
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(Duration(90 * time.Second))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var d Duration
	if err := yaml.Unmarshal(out, &d); err != nil {
		t.Fatalf("Unmarshal %q: %v", out, err)
	}
	if time.Duration(d) != 90*time.Second {
		t.Errorf("round trip = %v, want 1m30s", time.Duration(d))
	}
}
