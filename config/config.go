package config

import (
	"encoding/json"
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/blogem/github-login/models"
)

// ClientList is a JSON array of client configurations carried in a single
// environment variable.
type ClientList []models.ClientConfig

// UnmarshalText implements encoding.TextUnmarshaler for env parsing.
func (l *ClientList) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		return nil
	}
	if err := json.Unmarshal(text, (*[]models.ClientConfig)(l)); err != nil {
		return fmt.Errorf("invalid client list: %w", err)
	}
	return nil
}

// Config holds the server configuration read from the environment.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	DBPath   string `env:"DB_PATH" envDefault:"github_login.db"`
	RootPath string `env:"ROOT_PATH" envDefault:"/"`

	// SeedClients are statically configured clients added to the registry
	// at startup, e.g.
	// GITHUB_CLIENTS='[{"app_id":"app1","client_id":"c1","client_secret":"s1","callback":"http://cb"}]'
	SeedClients ClientList `env:"GITHUB_CLIENTS"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
