package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"woosh/internal/domain"
	"woosh/internal/store"
)

const tokenFilename = "token"

// ErrNotLoggedIn is returned by Token when no token is stored.
var ErrNotLoggedIn = errors.New("auth: not logged in")

// TokenFileStore keeps the token in a 0600 file under the woosh home.
type TokenFileStore struct {
	path string
	mu   sync.Mutex
}

// NewTokenFileStore returns a TokenFileStore rooted at dir.
func NewTokenFileStore(dir string) *TokenFileStore {
	return &TokenFileStore{path: filepath.Join(dir, tokenFilename)}
}

func (s *TokenFileStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := store.ReadFile(s.path)
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", ErrNotLoggedIn
	}
	return tok, nil
}

func (s *TokenFileStore) SaveToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("auth: empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.WriteFileAtomic(s.path, []byte(token+"\n"), 0o600)
}

func (s *TokenFileStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

var _ domain.TokenStore = (*TokenFileStore)(nil)

// MemoryTokenStore holds a token in memory only.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore returns a MemoryTokenStore preloaded with token.
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (m *MemoryTokenStore) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNotLoggedIn
	}
	return m.token, nil
}

func (m *MemoryTokenStore) SaveToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) ClearToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

var _ domain.TokenStore = (*MemoryTokenStore)(nil)
