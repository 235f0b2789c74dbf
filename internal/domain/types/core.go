package types

// ChatID identifies a conversation on the relay.
type ChatID string

// String returns the string form of the chat identifier.
func (id ChatID) String() string { return string(id) }

// Email is the address a relay account is known by.
type Email string

// String returns the string form of the email.
func (e Email) String() string { return string(e) }

// UID is the relay-assigned user identifier.
type UID string

// String returns the string form of the user identifier.
func (u UID) String() string { return string(u) }

// MessageID identifies a single message within a chat.
type MessageID string

// String returns the string form of the message identifier.
func (id MessageID) String() string { return string(id) }

// Fingerprint is a short identifier for key material presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
