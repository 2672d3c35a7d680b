package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Admin.Username != "admin" {
		t.Errorf("expected default admin username %q, got %q", "admin", cfg.Admin.Username)
	}
	if cfg.Admin.TokenTTL != 24*time.Hour {
		t.Errorf("expected default token ttl 24h, got %v", cfg.Admin.TokenTTL)
	}
	if cfg.SMTP.Host != "smtp.gmail.com" || cfg.SMTP.Port != 587 {
		t.Errorf("unexpected smtp defaults %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portfolio.yml")

	original := DefaultConfig()
	original.Server.Port = 9090
	original.Admin.Username = "owner"
	original.Admin.Password = "hunter22"
	original.SMTP.Workers = 4
	original.RateLimit.ContactWindow = 30 * time.Minute

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Server.Port != 9090 {
		t.Errorf("port: got %d, want 9090", loaded.Server.Port)
	}
	if loaded.Admin.Username != "owner" {
		t.Errorf("username: got %q, want %q", loaded.Admin.Username, "owner")
	}
	if loaded.SMTP.Workers != 4 {
		t.Errorf("workers: got %d, want 4", loaded.SMTP.Workers)
	}
	if loaded.RateLimit.ContactWindow != 30*time.Minute {
		t.Errorf("contact window: got %v, want 30m", loaded.RateLimit.ContactWindow)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.yml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Database.Path != "data/portfolio.db" {
		t.Errorf("expected default database path, got %q", cfg.Database.Path)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORTFOLIO_SERVER__PORT", "7000")
	t.Setenv("PORTFOLIO_ADMIN__PASSWORD_HASH", "$2a$10$abc")
	t.Setenv("PORTFOLIO_SMTP__NOTIFY_TO", "me@example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("port: got %d, want 7000", cfg.Server.Port)
	}
	if cfg.Admin.PasswordHash != "$2a$10$abc" {
		t.Errorf("password hash: got %q", cfg.Admin.PasswordHash)
	}
	if cfg.SMTP.NotifyTo != "me@example.com" {
		t.Errorf("notify_to: got %q", cfg.SMTP.NotifyTo)
	}
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("GMAIL_USER", "owner@gmail.com")
	t.Setenv("ADMIN_PASSWORD", "s3cret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("port: got %d, want 5000", cfg.Server.Port)
	}
	if cfg.SMTP.User != "owner@gmail.com" {
		t.Errorf("smtp user: got %q", cfg.SMTP.User)
	}
	if cfg.Admin.Password != "s3cret" {
		t.Errorf("admin password: got %q", cfg.Admin.Password)
	}
}

func TestPrefixedEnvBeatsLegacy(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("PORTFOLIO_SERVER__PORT", "6000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("port: got %d, want 6000", cfg.Server.Port)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Admin.Password = "pw"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }, true},
		{"no username", func(c *Config) { c.Admin.Username = "" }, true},
		{"no password", func(c *Config) { c.Admin.Password = "" }, true},
		{"hash only", func(c *Config) { c.Admin.Password = ""; c.Admin.PasswordHash = "x" }, false},
		{"short secret", func(c *Config) { c.Admin.Secret = "short" }, true},
		{"zero workers", func(c *Config) { c.SMTP.Workers = 0 }, true},
		{"negative limit", func(c *Config) { c.RateLimit.ContactLimit = -1 }, true},
		{"no db path", func(c *Config) { c.Database.Path = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 3000
	if got := cfg.Addr(); got != ":3000" {
		t.Errorf("Addr() = %q, want %q", got, ":3000")
	}
}
