package config

import "time"

// DefaultConfig returns the configuration used when no file or env overrides exist.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Mode:            "release",
			StaticDir:       "static",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data/portfolio.db",
		},
		Admin: AdminConfig{
			Username: "admin",
			TokenTTL: 24 * time.Hour,
		},
		SMTP: SMTPConfig{
			Host:    "smtp.gmail.com",
			Port:    587,
			Workers: 2,
			Queue:   64,
		},
		RateLimit: RateLimitConfig{
			ContactLimit:  5,
			ContactWindow: time.Hour,
			LoginLimit:    10,
			LoginWindow:   15 * time.Minute,
		},
		Uploads: UploadsConfig{
			Dir:         "image",
			MaxFileSize: 10 << 20,
		},
		Visitors: VisitorsConfig{
			Enabled:   true,
			Retention: 365 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
