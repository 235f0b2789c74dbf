package store

import (
	"errors"
	"fmt"

	"woosh/internal/domain"
)

// ErrInvalidRecord is returned by Put for a record without a chat id or key.
var ErrInvalidRecord = errors.New("store: record needs chat_id and a 32-byte aes_key")

func validate(rec domain.SessionKeyRecord) error {
	if rec.ChatID == "" || len(rec.AESKey) != domain.SymmetricKeySize {
		return ErrInvalidRecord
	}
	return nil
}

// merge folds incoming into existing. The key is immutable: a different
// AESKey is a conflict and existing is returned untouched. Empty peer
// metadata on existing may be filled from incoming.
func merge(existing, incoming domain.SessionKeyRecord) (domain.SessionKeyRecord, bool, error) {
	if !existing.AESKey.Equal(incoming.AESKey) {
		return existing, false, fmt.Errorf("chat %s: %w", existing.ChatID, domain.ErrKeyConflict)
	}
	out, changed := existing, false
	if out.PeerEmail == "" && incoming.PeerEmail != "" {
		out.PeerEmail, changed = incoming.PeerEmail, true
	}
	if out.PeerUID == "" && incoming.PeerUID != "" {
		out.PeerUID, changed = incoming.PeerUID, true
	}
	if out.ClientAESKey.IsZero() && !incoming.ClientAESKey.IsZero() {
		out.ClientAESKey, changed = clone(incoming.ClientAESKey), true
	}
	return out, changed, nil
}

func clone(k domain.SymmetricKey) domain.SymmetricKey {
	if k == nil {
		return nil
	}
	return append(domain.SymmetricKey(nil), k...)
}

func cloneRecord(r domain.SessionKeyRecord) domain.SessionKeyRecord {
	r.AESKey = clone(r.AESKey)
	r.ClientAESKey = clone(r.ClientAESKey)
	return r
}
