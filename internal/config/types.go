package config

import "time"

// Config is the top-level server configuration, corresponding to portfolio.yml.
type Config struct {
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Database  DatabaseConfig  `yaml:"database" koanf:"database"`
	Admin     AdminConfig     `yaml:"admin" koanf:"admin"`
	SMTP      SMTPConfig      `yaml:"smtp" koanf:"smtp"`
	Redis     RedisConfig     `yaml:"redis" koanf:"redis"`
	RateLimit RateLimitConfig `yaml:"ratelimit" koanf:"ratelimit"`
	Uploads   UploadsConfig   `yaml:"uploads" koanf:"uploads"`
	Visitors  VisitorsConfig  `yaml:"visitors" koanf:"visitors"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
	SeedFile  string          `yaml:"seed_file" koanf:"seed_file"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port" koanf:"port"`
	Mode            string        `yaml:"mode" koanf:"mode"`
	StaticDir       string        `yaml:"static_dir" koanf:"static_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" koanf:"shutdown_timeout"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// AdminConfig holds the single admin account and token settings.
type AdminConfig struct {
	Username     string        `yaml:"username" koanf:"username"`
	Password     string        `yaml:"password" koanf:"password"`
	PasswordHash string        `yaml:"password_hash" koanf:"password_hash"`
	Secret       string        `yaml:"secret" koanf:"secret"`
	APIToken     string        `yaml:"api_token" koanf:"api_token"`
	TokenTTL     time.Duration `yaml:"token_ttl" koanf:"token_ttl"`
	SecureCookie bool          `yaml:"secure_cookie" koanf:"secure_cookie"`
}

// SMTPConfig configures outgoing mail.
type SMTPConfig struct {
	Host     string `yaml:"host" koanf:"host"`
	Port     int    `yaml:"port" koanf:"port"`
	User     string `yaml:"user" koanf:"user"`
	Pass     string `yaml:"pass" koanf:"pass"`
	From     string `yaml:"from" koanf:"from"`
	NotifyTo string `yaml:"notify_to" koanf:"notify_to"`
	Workers  int    `yaml:"workers" koanf:"workers"`
	Queue    int    `yaml:"queue" koanf:"queue"`
}

// RedisConfig enables the shared rate limiter when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" koanf:"addr"`
	Password string `yaml:"password" koanf:"password"`
	DB       int    `yaml:"db" koanf:"db"`
}

// RateLimitConfig bounds public write endpoints per client IP.
type RateLimitConfig struct {
	ContactLimit  int           `yaml:"contact_limit" koanf:"contact_limit"`
	ContactWindow time.Duration `yaml:"contact_window" koanf:"contact_window"`
	LoginLimit    int           `yaml:"login_limit" koanf:"login_limit"`
	LoginWindow   time.Duration `yaml:"login_window" koanf:"login_window"`
}

// UploadsConfig is where admin-uploaded project files land.
type UploadsConfig struct {
	Dir         string `yaml:"dir" koanf:"dir"`
	MaxFileSize int64  `yaml:"max_file_size" koanf:"max_file_size"`
}

// VisitorsConfig controls hashed-IP visitor tracking.
type VisitorsConfig struct {
	Enabled   bool          `yaml:"enabled" koanf:"enabled"`
	Retention time.Duration `yaml:"retention" koanf:"retention"`
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level       string `yaml:"level" koanf:"level"`
	Development bool   `yaml:"development" koanf:"development"`
}
