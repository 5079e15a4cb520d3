package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Config holds all the configuration settings for the server
type Config struct {
	// Listener configuration
	BindAddr string `env:"BIND_ADDR" envDefault:"0.0.0.0:7878"`
	MaxGames int    `env:"MAX_GAMES" envDefault:"16"`

	// Optional collaborators (disabled when empty)
	RabbitMQURL string `env:"RABBITMQ_URL" envDefault:""`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:""`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load returns the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
