package relayserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds relay settings, read from the environment.
type Config struct {
	Addr            string        `env:"RELAY_ADDR" env-default:":8080"`
	JWTSecret       string        `env:"RELAY_JWT_SECRET"`
	TokenTTL        time.Duration `env:"RELAY_TOKEN_TTL" env-default:"24h"`
	MessageTTL      time.Duration `env:"RELAY_MESSAGE_TTL" env-default:"60s"`
	CleanupInterval time.Duration `env:"RELAY_CLEANUP_INTERVAL" env-default:"10s"`
	LogLevel        string        `env:"RELAY_LOG_LEVEL" env-default:"info"`
}

// ErrNoSecret is returned when RELAY_JWT_SECRET is unset.
var ErrNoSecret = errors.New("relayserver: RELAY_JWT_SECRET is required")

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("relayserver: load %s: %w", envFile, err)
		}
	}
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("relayserver: read env: %w", err)
	}
	if cfg.JWTSecret == "" {
		return Config{}, ErrNoSecret
	}
	return cfg, nil
}
