package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreBolt = "bolt"
	StoreFile = "file"
)

// Config holds runtime wiring options for building the app.
//
// Home defaults to $HOME/.woosh. StorePassphrase seals the file store when
// set and is ignored by the bolt backend.
type Config struct {
	Home            string        `env:"WOOSH_HOME"`
	RelayURL        string        `env:"WOOSH_RELAY_URL" env-default:"http://127.0.0.1:8080"`
	PollInterval    time.Duration `env:"WOOSH_POLL_INTERVAL" env-default:"2s"`
	HTTPTimeout     time.Duration `env:"WOOSH_HTTP_TIMEOUT" env-default:"10s"`
	Store           string        `env:"WOOSH_STORE" env-default:"bolt"`
	StorePassphrase string        `env:"WOOSH_STORE_PASSPHRASE"`
	LogLevel        string        `env:"WOOSH_LOG_LEVEL" env-default:"info"`
}

// LoadConfig reads .env from the working directory and from the woosh home
// (neither is required), then the process environment. Variables already set
// in the environment win over .env files.
func LoadConfig() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	if home, err := defaultHome(os.Getenv("WOOSH_HOME")); err == nil {
		if err := loadDotEnv(filepath.Join(home, ".env")); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("app: read env: %w", err)
	}
	return cfg.normalize()
}

func (c Config) normalize() (Config, error) {
	home, err := defaultHome(c.Home)
	if err != nil {
		return Config{}, err
	}
	c.Home = home
	switch c.Store {
	case StoreBolt, StoreFile:
	case "":
		c.Store = StoreBolt
	default:
		return Config{}, fmt.Errorf("app: unknown store %q (want %s or %s)", c.Store, StoreBolt, StoreFile)
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return c, nil
}

func defaultHome(home string) (string, error) {
	if home != "" {
		return home, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".woosh"), nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("app: load %s: %w", path, err)
}
