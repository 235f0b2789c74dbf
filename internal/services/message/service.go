package message

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"woosh/internal/crypto"
	"woosh/internal/domain"
)

// DecryptionFailedText replaces the plaintext of a message that cannot be
// opened.
const DecryptionFailedText = "[Decryption failed]"

// Service sends and receives messages over the relay.
//
// High-level flow:
//   - Send: look up the chat key, seal the text and post the envelope.
//   - Receive: fetch the batch, resolve the key (store first, then the key the
//     relay returned inline), and open every message independently.
type Service struct {
	sessionService domain.SessionService
	relayClient    domain.RelayClient
	log            logrus.FieldLogger
}

// New constructs a message Service.
func New(
	sessionService domain.SessionService,
	relayClient domain.RelayClient,
	log logrus.FieldLogger,
) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		sessionService: sessionService,
		relayClient:    relayClient,
		log:            log,
	}
}

// SendMessage seals text under the chat key and posts it.
func (s *Service) SendMessage(
	ctx context.Context,
	chat domain.ChatID,
	text string,
) (domain.SendMessageResponse, error) {
	rec, ok, err := s.sessionService.GetSession(chat)
	if err != nil {
		return domain.SendMessageResponse{}, err
	}
	if !ok {
		return domain.SendMessageResponse{}, fmt.Errorf("chat %s: %w", chat, domain.ErrNoSession)
	}

	env, err := crypto.Seal([]byte(text), rec.AESKey)
	if err != nil {
		return domain.SendMessageResponse{}, err
	}
	return s.relayClient.SendMessage(ctx, chat, env)
}

// ReceiveMessages fetches and opens every live message in chat.
//
// The key is resolved through the session service: a stored key wins, and a
// key the relay returns for an unknown chat is stored before use. A relay key
// that disagrees with the stored one is surfaced as domain.ErrKeyConflict.
func (s *Service) ReceiveMessages(ctx context.Context, chat domain.ChatID) ([]domain.DecryptedMessage, error) {
	resp, err := s.relayClient.FetchMessages(ctx, chat)
	if err != nil {
		return nil, err
	}
	rec, err := s.sessionService.ReconcileSession(chat, resp.AESKey)
	if err != nil {
		return nil, err
	}

	out := Decrypt(rec.AESKey, resp.Messages)
	failed := 0
	for _, m := range out {
		if !m.Decrypted {
			failed++
		}
	}
	if failed > 0 {
		s.log.WithFields(logrus.Fields{
			"chat_id": chat,
			"failed":  failed,
			"total":   len(out),
		}).Warn("some messages could not be decrypted")
	}
	return out, nil
}

// MarkAllRead starts the expiry countdown for the peer's unread messages.
func (s *Service) MarkAllRead(ctx context.Context, chat domain.ChatID) (domain.MarkReadResponse, error) {
	return s.relayClient.MarkAllRead(ctx, chat)
}

// Decrypt opens each message under key. Failures never abort the batch; the
// failing message carries DecryptionFailedText instead.
func Decrypt(key domain.SymmetricKey, msgs []domain.Message) []domain.DecryptedMessage {
	out := make([]domain.DecryptedMessage, 0, len(msgs))
	for _, m := range msgs {
		dm := domain.DecryptedMessage{Message: m}
		if pt, err := crypto.Open(m.EncryptedText, key); err == nil {
			dm.Text, dm.Decrypted = string(pt), true
		} else {
			dm.Text = DecryptionFailedText
		}
		out = append(out, dm)
	}
	return out
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
