package app_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woosh/internal/app"
	"woosh/internal/domain"
	"woosh/internal/relayserver"
	"woosh/internal/services/conversation"
	"woosh/internal/store"
)

func newWire(t *testing.T, cfg app.Config) *app.Wire {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	if cfg.Home == "" {
		cfg.Home = t.TempDir()
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	w, err := app.NewWire(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func record(chat string) domain.SessionKeyRecord {
	key := make(domain.SymmetricKey, domain.SymmetricKeySize)
	key[0] = 7
	return domain.SessionKeyRecord{ChatID: domain.ChatID(chat), PeerEmail: "bob@example.com", AESKey: key}
}

func TestNewWire_StoreBackends(t *testing.T) {
	cases := []struct {
		name       string
		store      string
		passphrase string
		file       string
	}{
		{"bolt", app.StoreBolt, "", "sessions.db"},
		{"file", app.StoreFile, "", "sessions.json"},
		{"sealed", app.StoreFile, "hunter2", "sessions.enc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			home := t.TempDir()
			w := newWire(t, app.Config{Home: home, Store: tc.store, StorePassphrase: tc.passphrase})

			require.NoError(t, w.SessionStore.Put(record("c1")))
			got, ok, err := w.SessionStore.Get("c1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, domain.Email("bob@example.com"), got.PeerEmail)

			_, err = os.Stat(filepath.Join(home, tc.file))
			require.NoError(t, err)
		})
	}
}

func TestNewWire_DefaultsToBolt(t *testing.T) {
	w := newWire(t, app.Config{})
	assert.IsType(t, &store.BoltSessionStore{}, w.SessionStore)
	assert.Equal(t, conversation.StateUninitialized, w.NewConversation().State())
}

func TestWire_EndToEnd(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	srv := relayserver.New(relayserver.Config{
		JWTSecret:  "secret",
		TokenTTL:   time.Hour,
		MessageTTL: time.Minute,
	}, log)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	login := func(uid domain.UID, email domain.Email) *app.Wire {
		w := newWire(t, app.Config{RelayURL: ts.URL, Store: app.StoreFile})
		tok, err := srv.IssueToken(uid, email)
		require.NoError(t, err)
		require.NoError(t, w.Tokens.SaveToken(tok))
		return w
	}
	ctx := context.Background()
	alice := login("u-alice", "alice@example.com")
	bob := login("u-bob", "bob@example.com")

	// The relay only knows users it has seen a request from.
	_, err := bob.Relay.ListChats(ctx)
	require.NoError(t, err)

	rec, err := alice.Sessions.StartSession(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, rec.AESKey, domain.SymmetricKeySize)

	_, err = alice.Messages.SendMessage(ctx, rec.ChatID, "hello bob")
	require.NoError(t, err)

	msgs, err := bob.Messages.ReceiveMessages(ctx, rec.ChatID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Decrypted)
	assert.Equal(t, "hello bob", msgs[0].Text)

	bobRec, ok, err := bob.Sessions.GetSession(rec.ChatID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, bobRec.AESKey.Equal(rec.AESKey))
}
