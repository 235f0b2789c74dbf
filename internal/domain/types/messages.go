package types

import "time"

// MessageStatus is the relay-side read state of a message.
type MessageStatus string

const (
	StatusUnread MessageStatus = "unread"
	StatusRead   MessageStatus = "read"
)

// Message is a ciphertext message as the relay returns it.
type Message struct {
	ID            MessageID     `json:"message_id"`
	SenderUID     UID           `json:"sender_uid"`
	EncryptedText string        `json:"encrypted_text"`
	Timestamp     int64         `json:"timestamp"`
	Status        MessageStatus `json:"status"`
	ReadAt        *int64        `json:"read_at,omitempty"`
	ExpiresAt     *int64        `json:"expires_at,omitempty"`
}

// DecryptedMessage is a relay message paired with its recomputed plaintext.
// It is never persisted.
type DecryptedMessage struct {
	Message
	Text      string `json:"text"`
	Decrypted bool   `json:"decrypted"`
}

// SentAt returns the relay timestamp as a time.Time.
func (m Message) SentAt() time.Time { return time.Unix(m.Timestamp, 0) }

// ExpiryTime returns when the relay will drop the message, if the countdown
// has started.
func (m Message) ExpiryTime() (time.Time, bool) {
	if m.ExpiresAt == nil {
		return time.Time{}, false
	}
	return time.Unix(*m.ExpiresAt, 0), true
}
