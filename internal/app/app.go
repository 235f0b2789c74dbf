package app

import (
	"os"

	"github.com/sirupsen/logrus"
)

// App is everything a CLI command needs: resolved config, a logger and the
// wired services.
type App struct {
	Config Config
	Log    *logrus.Logger
	*Wire
}

// New builds an App from cfg, logging to stderr.
func New(cfg Config) (*App, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	log, err := NewLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}
	w, err := NewWire(cfg, log)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Log: log, Wire: w}, nil
}
