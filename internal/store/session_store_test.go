package store_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"woosh/internal/domain"
	"woosh/internal/store"
)

func key(b byte) domain.SymmetricKey {
	return domain.SymmetricKey(bytes.Repeat([]byte{b}, domain.SymmetricKeySize))
}

type backend struct {
	name string
	open func(t *testing.T, dir string) domain.SessionStore
}

func backends() []backend {
	return []backend{
		{"file", func(_ *testing.T, dir string) domain.SessionStore {
			return store.NewSessionFileStore(dir)
		}},
		{"sealed", func(_ *testing.T, dir string) domain.SessionStore {
			return store.NewSealedSessionFileStore(dir, "correct horse")
		}},
		{"bolt", func(t *testing.T, dir string) domain.SessionStore {
			s, err := store.OpenBoltSessionStore(dir)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func TestSessionStore_PutGet(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())

			_, ok, err := s.Get("chat-1")
			require.NoError(t, err)
			require.False(t, ok)

			rec := domain.SessionKeyRecord{ChatID: "chat-1", PeerEmail: "bob@example.com", PeerUID: "u-bob", AESKey: key(1), ClientAESKey: key(1)}
			require.NoError(t, s.Put(rec))

			got, ok, err := s.Get("chat-1")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, rec.PeerEmail, got.PeerEmail)
			require.Equal(t, rec.PeerUID, got.PeerUID)
			require.True(t, got.AESKey.Equal(key(1)))
			require.True(t, got.ClientAESKey.Equal(key(1)))
		})
	}
}

func TestSessionStore_IdempotentAndConflict(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())
			rec := domain.SessionKeyRecord{ChatID: "c", AESKey: key(7)}
			require.NoError(t, s.Put(rec))
			require.NoError(t, s.Put(rec))

			err := s.Put(domain.SessionKeyRecord{ChatID: "c", PeerEmail: "x@y", AESKey: key(8)})
			require.ErrorIs(t, err, domain.ErrKeyConflict)

			got, _, err := s.Get("c")
			require.NoError(t, err)
			require.True(t, got.AESKey.Equal(key(7)))
			require.Empty(t, got.PeerEmail, "conflicting put must not touch the record")
		})
	}
}

func TestSessionStore_FillsMissingMetadata(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())
			require.NoError(t, s.Put(domain.SessionKeyRecord{ChatID: "c", AESKey: key(3)}))
			require.NoError(t, s.Put(domain.SessionKeyRecord{ChatID: "c", PeerEmail: "bob@example.com", PeerUID: "u2", AESKey: key(3)}))
			require.NoError(t, s.Put(domain.SessionKeyRecord{ChatID: "c", PeerEmail: "other@example.com", AESKey: key(3)}))

			got, _, err := s.Get("c")
			require.NoError(t, err)
			require.Equal(t, domain.Email("bob@example.com"), got.PeerEmail)
			require.Equal(t, domain.UID("u2"), got.PeerUID)
		})
	}
}

func TestSessionStore_ListDelete(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())
			require.NoError(t, s.Put(domain.SessionKeyRecord{ChatID: "b", AESKey: key(2)}))
			require.NoError(t, s.Put(domain.SessionKeyRecord{ChatID: "a", AESKey: key(1)}))

			list, err := s.List()
			require.NoError(t, err)
			require.Len(t, list, 2)
			require.Equal(t, domain.ChatID("a"), list[0].ChatID)
			require.Equal(t, domain.ChatID("b"), list[1].ChatID)

			require.NoError(t, s.Delete("a"))
			require.NoError(t, s.Delete("missing"))
			_, ok, err := s.Get("a")
			require.NoError(t, err)
			require.False(t, ok)

			// A forgotten chat can be re-keyed.
			require.NoError(t, s.Put(domain.SessionKeyRecord{ChatID: "a", AESKey: key(9)}))
		})
	}
}

func TestSessionStore_RejectsInvalid(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())
			require.ErrorIs(t, s.Put(domain.SessionKeyRecord{AESKey: key(1)}), store.ErrInvalidRecord)
			require.ErrorIs(t, s.Put(domain.SessionKeyRecord{ChatID: "c", AESKey: key(1)[:16]}), store.ErrInvalidRecord)
		})
	}
}

func TestSessionStore_ConcurrentConflictingPuts(t *testing.T) {
	for _, b := range backends() {
		if b.name == "sealed" {
			continue // scrypt per write makes this slow without adding coverage
		}
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				ok, confl int
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					err := s.Put(domain.SessionKeyRecord{ChatID: "race", AESKey: key(byte(i + 1))})
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						ok++
					} else {
						assert.ErrorIs(t, err, domain.ErrKeyConflict)
						confl++
					}
				}(i)
			}
			wg.Wait()
			require.Equal(t, 1, ok)
			require.Equal(t, 7, confl)
		})
	}
}

// Each open returns an independent handle on dir, as a second woosh process
// would get.
func sharedBackends() []backend {
	var out []backend
	for _, b := range backends() {
		if b.name != "sealed" {
			out = append(out, b)
		}
	}
	return out
}

func TestSessionStore_TwoHandlesKeepEveryChat(t *testing.T) {
	for _, b := range sharedBackends() {
		t.Run(b.name, func(t *testing.T) {
			dir := t.TempDir()
			handles := []domain.SessionStore{b.open(t, dir), b.open(t, dir)}

			const chats = 40
			var wg sync.WaitGroup
			for i := 0; i < chats; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					rec := domain.SessionKeyRecord{ChatID: domain.ChatID(fmt.Sprintf("chat-%02d", i)), AESKey: key(byte(i + 1))}
					assert.NoError(t, handles[i%2].Put(rec))
				}(i)
			}
			wg.Wait()

			list, err := handles[0].List()
			require.NoError(t, err)
			require.Len(t, list, chats)
		})
	}
}

func TestSessionStore_TwoHandlesDetectConflict(t *testing.T) {
	for _, b := range sharedBackends() {
		t.Run(b.name, func(t *testing.T) {
			dir := t.TempDir()
			first, second := b.open(t, dir), b.open(t, dir)

			for round := 0; round < 20; round++ {
				chat := domain.ChatID(fmt.Sprintf("race-%d", round))
				errs := make([]error, 2)
				var wg sync.WaitGroup
				for i, s := range []domain.SessionStore{first, second} {
					wg.Add(1)
					go func(i int, s domain.SessionStore) {
						defer wg.Done()
						errs[i] = s.Put(domain.SessionKeyRecord{ChatID: chat, AESKey: key(byte(i + 1))})
					}(i, s)
				}
				wg.Wait()

				winner := 0
				if errs[0] != nil {
					winner = 1
				}
				require.NoError(t, errs[winner], "round %d", round)
				require.ErrorIs(t, errs[1-winner], domain.ErrKeyConflict, "round %d", round)

				got, ok, err := second.Get(chat)
				require.NoError(t, err)
				require.True(t, ok)
				require.True(t, got.AESKey.Equal(key(byte(winner+1))), "round %d", round)
			}
		})
	}
}

func TestBoltSessionStore_SecondOpenWhileFirstInUse(t *testing.T) {
	dir := t.TempDir()
	first, err := store.OpenBoltSessionStore(dir)
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.Put(domain.SessionKeyRecord{ChatID: "c", AESKey: key(6)}))

	second, err := store.OpenBoltSessionStore(dir)
	require.NoError(t, err)
	defer second.Close()
	got, ok, err := second.Get("c")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.AESKey.Equal(key(6)))

	require.NoError(t, first.Put(domain.SessionKeyRecord{ChatID: "d", AESKey: key(7)}))
}

func TestBoltSessionStore_BusyWhileLockHeld(t *testing.T) {
	dir := t.TempDir()
	s, err := store.OpenBoltSessionStore(dir, store.WithLockTimeout(100*time.Millisecond))
	require.NoError(t, err)

	holder, err := bolt.Open(filepath.Join(dir, "sessions.db"), 0o600, nil)
	require.NoError(t, err)

	err = s.Put(domain.SessionKeyRecord{ChatID: "c", AESKey: key(1)})
	require.ErrorIs(t, err, store.ErrStoreBusy)

	require.NoError(t, holder.Close())
	require.NoError(t, s.Put(domain.SessionKeyRecord{ChatID: "c", AESKey: key(1)}))
}

func TestSessionStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := store.OpenBoltSessionStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(domain.SessionKeyRecord{ChatID: "c", AESKey: key(4)}))
	require.NoError(t, s.Close())

	s, err = store.OpenBoltSessionStore(dir)
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.Get("c")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.AESKey.Equal(key(4)))
}

func TestSealedStore_WrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	s := store.NewSealedSessionFileStore(dir, "right")
	require.NoError(t, s.Put(domain.SessionKeyRecord{ChatID: "secret-chat", AESKey: key(5)}))

	raw, err := os.ReadFile(filepath.Join(dir, "sessions.enc"))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "secret-chat")

	_, _, err = store.NewSealedSessionFileStore(dir, "wrong").Get("secret-chat")
	require.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestAtomicFileHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	b, err := store.ReadFile(path)
	require.NoError(t, err)
	require.Nil(t, b)

	require.NoError(t, store.WriteFileAtomic(path, []byte("v1"), 0o600))
	require.NoError(t, store.WriteFileAtomic(path, []byte("v2"), 0o600))
	b, err = store.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "v2", string(b))
}
