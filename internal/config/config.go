package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides: PORTFOLIO_SMTP__HOST -> smtp.host.
const EnvPrefix = "PORTFOLIO_"

// legacyEnv maps the bare variable names the site has always been deployed
// with onto config keys. PORTFOLIO_* variables still win over these.
var legacyEnv = map[string]string{
	"PORT":           "server.port",
	"GIN_MODE":       "server.mode",
	"ADMIN_USERNAME": "admin.username",
	"ADMIN_PASSWORD": "admin.password",
	"ADMIN_TOKEN":    "admin.api_token",
	"SECRET_KEY":     "admin.secret",
	"SMTP_HOST":      "smtp.host",
	"SMTP_PORT":      "smtp.port",
	"SMTP_USER":      "smtp.user",
	"SMTP_PASS":      "smtp.pass",
	"GMAIL_USER":     "smtp.user",
	"GMAIL_PASS":     "smtp.pass",
	"TO_EMAIL":       "smtp.notify_to",
	"REDIS_ADDR":     "redis.addr",
}

// Load reads configuration from the given YAML file, then overlays the
// legacy environment names and finally PORTFOLIO_* overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyEnv[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading legacy env: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey turns PORTFOLIO_ADMIN__PASSWORD_HASH into admin.password_hash.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validModes = map[string]bool{
	"debug":   true,
	"release": true,
	"test":    true,
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if !validModes[c.Server.Mode] {
		return fmt.Errorf("invalid server.mode %q: must be one of debug, release, test", c.Server.Mode)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Admin.Username == "" {
		return fmt.Errorf("admin.username is required")
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return fmt.Errorf("admin.password or admin.password_hash is required")
	}
	if c.Admin.Secret != "" && len(c.Admin.Secret) < 32 {
		return fmt.Errorf("admin.secret must be at least 32 characters")
	}
	if c.Admin.TokenTTL <= 0 {
		return fmt.Errorf("admin.token_ttl must be positive")
	}
	if c.SMTP.Workers < 1 {
		return fmt.Errorf("smtp.workers must be at least 1")
	}
	if c.SMTP.Queue < 1 {
		return fmt.Errorf("smtp.queue must be at least 1")
	}
	if c.RateLimit.ContactLimit < 0 || c.RateLimit.LoginLimit < 0 {
		return fmt.Errorf("rate limits must be non-negative")
	}
	if c.Uploads.MaxFileSize <= 0 {
		return fmt.Errorf("uploads.max_file_size must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

// SMTPConfigured reports whether credentials for outgoing mail are present.
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.User != "" && c.SMTP.Pass != ""
}
