// Package config loads server configuration from environment variables.
//
// Every knob has a development-friendly default, so `go run ./cmd/server`
// works with nothing set. The struct tags are read by caarlos0/env — one
// Parse call fills the whole tree, with envPrefix keeping related
// variables grouped (REDIS_ADDR, SMTP_HOST, ...).
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config contains all server configuration.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/linkloom.db"`

	// FrontendURL is the base URL embedded in password-reset links.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	Redis   Redis   `envPrefix:"REDIS_"`
	Session Session `envPrefix:"SESSION_"`
	SMTP    SMTP    `envPrefix:"SMTP_"`
}

// Redis contains connection parameters for the key-value store that backs
// sessions and password-reset tokens.
type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB" envDefault:"0"`
}

// Session contains cookie settings. Secure must be true behind HTTPS in
// production; it defaults to false so local development works.
type Session struct {
	CookieName string `env:"COOKIE_NAME" envDefault:"qid"`
	Secure     bool   `env:"SECURE" envDefault:"false"`
}

// SMTP contains mail delivery parameters. When Host is empty the server
// falls back to logging reset emails instead of sending them.
type SMTP struct {
	Host     string `env:"HOST" envDefault:""`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME" envDefault:""`
	Password string `env:"PASSWORD" envDefault:""`
	From     string `env:"FROM" envDefault:"noreply@linkloom.local"`
}

// New loads configuration from the environment.
func New() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	return &cfg, nil
}
