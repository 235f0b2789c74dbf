package store

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"

	"woosh/internal/domain"
)

const (
	sessionsFilename       = "sessions.json"
	sealedSessionsFilename = "sessions.enc"
	sessionsLockFilename   = "sessions.lock"
)

// SessionFileStore persists chat session keys as a JSON map keyed by chat id.
//
// When a passphrase is set the map is sealed before it touches disk. Every
// load-merge-save runs under an exclusive flock on sessions.lock, so handles
// in different processes sharing one directory see each other's records and
// conflicts.
type SessionFileStore struct {
	dir        string
	passphrase string
	mu         sync.Mutex
}

// NewSessionFileStore returns a SessionFileStore rooted at dir.
func NewSessionFileStore(dir string) *SessionFileStore {
	return &SessionFileStore{dir: dir}
}

// NewSealedSessionFileStore returns a SessionFileStore that encrypts the file
// under passphrase.
func NewSealedSessionFileStore(dir, passphrase string) *SessionFileStore {
	return &SessionFileStore{dir: dir, passphrase: passphrase}
}

// Get returns the record for chat, if any.
func (s *SessionFileStore) Get(chat domain.ChatID) (domain.SessionKeyRecord, bool, error) {
	unlock, err := s.lock(false)
	if err != nil {
		return domain.SessionKeyRecord{}, false, err
	}
	defer unlock()

	sessions, err := s.load()
	if err != nil {
		return domain.SessionKeyRecord{}, false, err
	}
	rec, ok := sessions[chat]
	return rec, ok, nil
}

// Put stores rec, or merges it into an existing record with the same key.
func (s *SessionFileStore) Put(rec domain.SessionKeyRecord) (err error) {
	if err := validate(rec); err != nil {
		return err
	}
	unlock, err := s.lock(true)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := unlock(); err == nil {
			err = uerr
		}
	}()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	if existing, ok := sessions[rec.ChatID]; ok {
		merged, changed, err := merge(existing, rec)
		if err != nil || !changed {
			return err
		}
		sessions[rec.ChatID] = merged
	} else {
		sessions[rec.ChatID] = cloneRecord(rec)
	}
	return s.save(sessions)
}

// List returns every record ordered by chat id.
func (s *SessionFileStore) List() ([]domain.SessionKeyRecord, error) {
	unlock, err := s.lock(false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sessions, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.SessionKeyRecord, 0, len(sessions))
	for _, rec := range sessions {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

// Delete removes the record for chat. Deleting an unknown chat is a no-op.
func (s *SessionFileStore) Delete(chat domain.ChatID) (err error) {
	unlock, err := s.lock(true)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := unlock(); err == nil {
			err = uerr
		}
	}()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := sessions[chat]; !ok {
		return nil
	}
	delete(sessions, chat)
	return s.save(sessions)
}

// lock serializes access within this process first, then across processes.
func (s *SessionFileStore) lock(exclusive bool) (func() error, error) {
	s.mu.Lock()
	unlock, err := lockDir(s.dir, sessionsLockFilename, exclusive)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return func() error {
		defer s.mu.Unlock()
		return unlock()
	}, nil
}

func (s *SessionFileStore) load() (map[domain.ChatID]domain.SessionKeyRecord, error) {
	sessions := map[domain.ChatID]domain.SessionKeyRecord{}
	if s.passphrase == "" {
		if err := readJSON(filepath.Join(s.dir, sessionsFilename), &sessions); err != nil {
			return nil, err
		}
		return sessions, nil
	}

	b, err := readFile(filepath.Join(s.dir, sealedSessionsFilename))
	if err != nil || b == nil {
		return sessions, err
	}
	raw, err := decrypt(s.passphrase, b)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *SessionFileStore) save(sessions map[domain.ChatID]domain.SessionKeyRecord) error {
	if s.passphrase == "" {
		return writeJSON(filepath.Join(s.dir, sessionsFilename), sessions, 0o600)
	}
	raw, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	N, r, p := scryptParamsDefault()
	b, err := encrypt(s.passphrase, raw, N, r, p)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, sealedSessionsFilename), b, 0o600)
}

// Compile-time assertion that SessionFileStore implements domain.SessionStore.
var _ domain.SessionStore = (*SessionFileStore)(nil)
