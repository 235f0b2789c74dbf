package app

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"woosh/internal/auth"
	"woosh/internal/domain"
	"woosh/internal/protocol/dh"
	"woosh/internal/relay"
	"woosh/internal/services/conversation"
	messagesvc "woosh/internal/services/message"
	sessionsvc "woosh/internal/services/session"
	"woosh/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Tokens       domain.TokenStore
	SessionStore domain.SessionStore
	Relay        *relay.HTTP
	Sessions     *sessionsvc.Service
	Messages     domain.MessageService

	cfg   Config
	log   logrus.FieldLogger
	close func() error
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, log logrus.FieldLogger) (*Wire, error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	sessionStore, closeStore, err := openSessionStore(cfg)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenFileStore(cfg.Home)
	rc := relay.NewHTTP(cfg.RelayURL, tokens, cfg.HTTPTimeout)

	sessionSvc := sessionsvc.New(dh.Default(), sessionStore, rc, log)
	messageSvc := messagesvc.New(sessionSvc, rc, log)

	return &Wire{
		Tokens:       tokens,
		SessionStore: sessionStore,
		Relay:        rc,
		Sessions:     sessionSvc,
		Messages:     messageSvc,
		cfg:          cfg,
		log:          log,
		close:        closeStore,
	}, nil
}

func openSessionStore(cfg Config) (domain.SessionStore, func() error, error) {
	switch cfg.Store {
	case StoreFile:
		if cfg.StorePassphrase != "" {
			return store.NewSealedSessionFileStore(cfg.Home, cfg.StorePassphrase), noop, nil
		}
		return store.NewSessionFileStore(cfg.Home), noop, nil
	case StoreBolt, "":
		s, err := store.OpenBoltSessionStore(cfg.Home)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("app: unknown store %q", cfg.Store)
}

func noop() error { return nil }

// NewConversation returns a view bound to this wiring.
func (w *Wire) NewConversation() *conversation.View {
	return conversation.New(w.Sessions, w.Messages, w.Tokens, conversation.Options{
		PollInterval: w.cfg.PollInterval,
		Log:          w.log,
	})
}

// Close releases the session store.
func (w *Wire) Close() error { return w.close() }
