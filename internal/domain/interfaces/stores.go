package interfaces

import domaintypes "woosh/internal/domain/types"

// SessionStore caches negotiated chat keys across restarts.
//
// Put is idempotent for an identical key and fails with ErrKeyConflict when a
// different key is already stored for the chat.
type SessionStore interface {
	Get(chatID domaintypes.ChatID) (domaintypes.SessionKeyRecord, bool, error)
	Put(record domaintypes.SessionKeyRecord) error
	List() ([]domaintypes.SessionKeyRecord, error)
	Delete(chatID domaintypes.ChatID) error
}

// TokenStore holds the bearer token issued by the auth service.
type TokenStore interface {
	Token() (string, error)
	SaveToken(token string) error
	ClearToken() error
}
