// Package config loads process configuration from environment
// variables, grounded on the teacher's internal/config package.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration, loaded from environment variables.
type Config struct {
	// Server
	Host string `env:"NOSPOILERS_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"NOSPOILERS_PORT" envDefault:"8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Storage backend: "memory" or "redis". The encrypted KV store sits
	// on top of whichever backend is selected.
	StorageBackend string `env:"NOSPOILERS_STORAGE_BACKEND" envDefault:"memory"`
	RedisURL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// StorageSecret derives the AES key for the encrypted KV store via
	// PBKDF2. There is no safe default: Load fails if this is empty.
	StorageSecret string `env:"NOSPOILERS_STORAGE_SECRET"`

	// SessionSigningKey signs access tokens (HS256). Must be at least
	// 32 bytes; there is no safe default.
	SessionSigningKey string `env:"NOSPOILERS_SESSION_SIGNING_KEY"`

	// Transport policy, validated by authsvc.New at construction.
	APIBaseURL           string `env:"NOSPOILERS_API_BASE_URL" envDefault:"https://localhost:8443"`
	CookieName           string `env:"NOSPOILERS_COOKIE_NAME" envDefault:"ns_refresh"`
	Platform             string `env:"NOSPOILERS_PLATFORM" envDefault:"web"`
	EnforceSecureStorage bool   `env:"NOSPOILERS_ENFORCE_SECURE_STORAGE" envDefault:"true"`

	// DevMode echoes OTP codes in startPhoneLogin responses instead of
	// dispatching to a real SMS provider (out of scope per spec.md's
	// Non-goals). Never enable in a real deployment.
	DevMode bool `env:"NOSPOILERS_DEV_MODE" envDefault:"false"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	if cfg.StorageSecret == "" {
		return nil, fmt.Errorf("config: NOSPOILERS_STORAGE_SECRET must be set")
	}
	if len(cfg.SessionSigningKey) < 32 {
		return nil, fmt.Errorf("config: NOSPOILERS_SESSION_SIGNING_KEY must be at least 32 bytes")
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
