package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"woosh/internal/domain"
)

const (
	boltFilename   = "sessions.db"
	sessionsBucket = "sessions"
	metadataBucket = "metadata"
	versionKey     = "version"
	boltVersion    = 0
)

// DefaultLockTimeout bounds how long an operation waits for another process
// holding sessions.db.
const DefaultLockTimeout = 5 * time.Second

// ErrStoreBusy is returned when sessions.db stays locked past the lock
// timeout.
var ErrStoreBusy = errors.New("store: session store in use by another woosh process")

// BoltSessionStore keeps session records in a bbolt database, one JSON value
// per chat id.
//
// The database is opened for each operation and closed right after, so the
// bbolt file lock is only held for one short transaction and several woosh
// processes can share a home directory. Writes take the exclusive lock,
// reads a shared one. Concurrent Puts for the same chat are resolved inside
// a single update transaction.
type BoltSessionStore struct {
	path    string
	timeout time.Duration
	mu      sync.RWMutex
}

// BoltOption tunes a BoltSessionStore.
type BoltOption func(*BoltSessionStore)

// WithLockTimeout sets how long an operation waits for the file lock.
func WithLockTimeout(d time.Duration) BoltOption {
	return func(s *BoltSessionStore) { s.timeout = d }
}

// OpenBoltSessionStore opens (or creates) sessions.db under dir.
func OpenBoltSessionStore(dir string, opts ...BoltOption) (*BoltSessionStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return OpenBoltSessionStoreFile(filepath.Join(dir, boltFilename), opts...)
}

// OpenBoltSessionStoreFile creates the database at path if needed and checks
// its version.
func OpenBoltSessionStoreFile(path string, opts ...BoltOption) (*BoltSessionStore, error) {
	s := &BoltSessionStore{path: path, timeout: DefaultLockTimeout}
	for _, o := range opts {
		o(s)
	}

	err := s.update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(sessionsBucket)); err != nil {
			return err
		}
		if b := meta.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != boltVersion {
				return fmt.Errorf("store: incompatible session db version %v", b)
			}
			return nil
		}
		return meta.Put([]byte(versionKey), []byte{boltVersion})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BoltSessionStore) open(readOnly bool) (*bolt.DB, error) {
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.timeout, ReadOnly: readOnly})
	if errors.Is(err, berrors.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrStoreBusy, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", s.path, err)
	}
	return db, nil
}

func (s *BoltSessionStore) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.open(true)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}

func (s *BoltSessionStore) update(fn func(*bolt.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.open(false)
	if err != nil {
		return err
	}
	if err := db.Update(fn); err != nil {
		_ = db.Close()
		return err
	}
	return db.Close()
}

// Get returns the record for chat, if any.
func (s *BoltSessionStore) Get(chat domain.ChatID) (domain.SessionKeyRecord, bool, error) {
	var (
		rec domain.SessionKeyRecord
		ok  bool
	)
	err := s.view(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(sessionsBucket)).Get([]byte(chat))
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &rec)
	})
	return rec, ok, err
}

// Put stores rec, or merges it into an existing record with the same key.
func (s *BoltSessionStore) Put(rec domain.SessionKeyRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(sessionsBucket))
		next := cloneRecord(rec)

		if v := bkt.Get([]byte(rec.ChatID)); v != nil {
			var existing domain.SessionKeyRecord
			if err := json.Unmarshal(v, &existing); err != nil {
				return err
			}
			merged, changed, err := merge(existing, rec)
			if err != nil || !changed {
				return err
			}
			next = merged
		}

		b, err := json.Marshal(next)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(rec.ChatID), b)
	})
}

// List returns every record in chat id order.
func (s *BoltSessionStore) List() ([]domain.SessionKeyRecord, error) {
	var out []domain.SessionKeyRecord
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).ForEach(func(_, v []byte) error {
			var rec domain.SessionKeyRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// Delete removes the record for chat.
func (s *BoltSessionStore) Delete(chat domain.ChatID) error {
	return s.update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Delete([]byte(chat))
	})
}

// Close is a no-op; every operation closes the database itself.
func (s *BoltSessionStore) Close() error { return nil }

var _ domain.SessionStore = (*BoltSessionStore)(nil)
