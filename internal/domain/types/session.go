package types

// SessionKeyRecord is the locally cached key material for one chat.
//
// AESKey is the key used for every encrypt/decrypt on the chat. ClientAESKey is
// the copy derived locally from the DH exchange; it is empty when the relay
// handed the key over directly for an existing chat.
type SessionKeyRecord struct {
	ChatID       ChatID       `json:"chat_id"`
	PeerEmail    Email        `json:"peer_email"`
	PeerUID      UID          `json:"peer_uid"`
	AESKey       SymmetricKey `json:"aes_key"`
	ClientAESKey SymmetricKey `json:"client_aes_key,omitempty"`
}
