package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"woosh/internal/crypto"
	"woosh/internal/domain"
	"woosh/internal/protocol/dh"
)

// ErrUnknownInitStatus is returned when /chat/init answers with a status we
// do not understand.
var ErrUnknownInitStatus = errors.New("session: unknown init status")

// Service negotiates and stores chat keys.
//
// It handles:
//   - Generating a short-lived DH keypair per init attempt.
//   - Posting the public half to the relay and interpreting the answer.
//   - Deriving the key locally for new chats, or adopting the relay's key for
//     existing ones.
//   - Reconciling keys delivered inline with message fetches.
type Service struct {
	agreement    *dh.Agreement
	sessionStore domain.SessionStore
	relayClient  domain.RelayClient
	log          logrus.FieldLogger
}

// New constructs a session Service.
func New(
	agreement *dh.Agreement,
	sessionStore domain.SessionStore,
	relayClient domain.RelayClient,
	log logrus.FieldLogger,
) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		agreement:    agreement,
		sessionStore: sessionStore,
		relayClient:  relayClient,
		log:          log,
	}
}

// StartSession opens (or re-opens) a chat with peer and returns its stored
// key record.
//
// Steps:
//  1. Generate a fresh keypair; the private half is wiped on return.
//  2. POST /chat/init with our public key.
//  3. "existing": adopt the relay's aes_key without any local DH.
//     "created"/"new": validate the relay's public key, compute the shared
//     secret and derive the key. A relay-supplied key that disagrees is a
//     conflict.
//  4. Store the record; a different key already stored for the chat is a
//     conflict and nothing is overwritten.
func (s *Service) StartSession(ctx context.Context, peer domain.Email) (domain.SessionKeyRecord, error) {
	kp, err := s.agreement.GenerateKeypair()
	if err != nil {
		return domain.SessionKeyRecord{}, err
	}
	defer kp.Wipe()

	resp, err := s.relayClient.InitChat(ctx, domain.InitChatRequest{
		PeerEmail: peer,
		PublicKey: dh.EncodePublicKey(kp.Public),
	})
	if err != nil {
		return domain.SessionKeyRecord{}, err
	}
	if resp.ChatID == "" {
		return domain.SessionKeyRecord{}, fmt.Errorf("session: relay returned no chat id")
	}

	rec := domain.SessionKeyRecord{
		ChatID:    resp.ChatID,
		PeerEmail: resp.PeerEmail,
		PeerUID:   resp.PeerUID,
	}
	if rec.PeerEmail == "" {
		rec.PeerEmail = peer
	}

	switch resp.Status {
	case domain.InitStatusExisting:
		if len(resp.AESKey) != domain.SymmetricKeySize {
			return domain.SessionKeyRecord{}, domain.ErrInvalidKeyMaterial
		}
		rec.AESKey = resp.AESKey

	case domain.InitStatusCreated, domain.InitStatusNew:
		key, err := s.agreement.Agree(kp.Private, resp.ServerPublicKey)
		if err != nil {
			return domain.SessionKeyRecord{}, err
		}
		if !resp.AESKey.IsZero() && !resp.AESKey.Equal(key) {
			s.log.WithField("chat_id", resp.ChatID).Warn("relay key disagrees with derived key")
			return domain.SessionKeyRecord{}, fmt.Errorf("chat %s: %w", resp.ChatID, domain.ErrKeyConflict)
		}
		rec.AESKey = key
		rec.ClientAESKey = append(domain.SymmetricKey(nil), key...)

	default:
		return domain.SessionKeyRecord{}, fmt.Errorf("%w %q", ErrUnknownInitStatus, resp.Status)
	}

	if err := s.sessionStore.Put(rec); err != nil {
		return domain.SessionKeyRecord{}, err
	}
	s.log.WithFields(logrus.Fields{
		"chat_id":     rec.ChatID,
		"status":      resp.Status,
		"fingerprint": crypto.Fingerprint(rec.AESKey),
	}).Info("chat session ready")

	stored, _, err := s.sessionStore.Get(rec.ChatID)
	if err != nil {
		return domain.SessionKeyRecord{}, err
	}
	return stored, nil
}

// GetSession returns the stored record for chat.
func (s *Service) GetSession(chat domain.ChatID) (domain.SessionKeyRecord, bool, error) {
	return s.sessionStore.Get(chat)
}

// ReconcileSession checks a key delivered by the relay against the store.
// An unknown chat is stored with serverKey; a known chat must match.
func (s *Service) ReconcileSession(chat domain.ChatID, serverKey domain.SymmetricKey) (domain.SessionKeyRecord, error) {
	rec, ok, err := s.sessionStore.Get(chat)
	if err != nil {
		return domain.SessionKeyRecord{}, err
	}
	if ok {
		if !serverKey.IsZero() && !rec.AESKey.Equal(serverKey) {
			s.log.WithField("chat_id", chat).Warn("relay key disagrees with stored key")
			return domain.SessionKeyRecord{}, fmt.Errorf("chat %s: %w", chat, domain.ErrKeyConflict)
		}
		return rec, nil
	}

	if serverKey.IsZero() {
		return domain.SessionKeyRecord{}, fmt.Errorf("chat %s: %w", chat, domain.ErrNoSession)
	}
	if len(serverKey) != domain.SymmetricKeySize {
		return domain.SessionKeyRecord{}, domain.ErrInvalidKeyMaterial
	}
	rec = domain.SessionKeyRecord{ChatID: chat, AESKey: serverKey}
	if err := s.sessionStore.Put(rec); err != nil {
		return domain.SessionKeyRecord{}, err
	}
	s.log.WithFields(logrus.Fields{
		"chat_id":     chat,
		"fingerprint": crypto.Fingerprint(serverKey),
	}).Info("adopted chat key from relay")
	return rec, nil
}

// Forget drops the local key for chat.
func (s *Service) Forget(chat domain.ChatID) error {
	return s.sessionStore.Delete(chat)
}

// List returns every locally stored chat.
func (s *Service) List() ([]domain.SessionKeyRecord, error) {
	return s.sessionStore.List()
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
