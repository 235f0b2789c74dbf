package types

// Init statuses returned by POST /chat/init. The relay answers "created" for
// a freshly negotiated chat; "new" is accepted as a synonym.
const (
	InitStatusNew      = "new"
	InitStatusCreated  = "created"
	InitStatusExisting = "existing"
)

// InitChatRequest is the body of POST /chat/init.
type InitChatRequest struct {
	PeerEmail Email  `json:"peer_email"`
	PublicKey string `json:"public_key"`
}

// InitChatResponse is the relay's answer to a key-agreement request.
type InitChatResponse struct {
	Status          string       `json:"status"`
	ChatID          ChatID       `json:"chat_id"`
	PeerEmail       Email        `json:"peer_email"`
	PeerUID         UID          `json:"peer_uid"`
	AESKey          SymmetricKey `json:"aes_key,omitempty"`
	ServerPublicKey string       `json:"server_public_key,omitempty"`
}

// Existing reports whether the relay returned an already established chat.
func (r InitChatResponse) Existing() bool { return r.Status == InitStatusExisting }

// MessagesResponse is the body of GET /chat/{id}/messages.
type MessagesResponse struct {
	AESKey   SymmetricKey `json:"aes_key,omitempty"`
	Messages []Message    `json:"messages"`
}

// SendMessageRequest is the body of POST /chat/{id}/send.
type SendMessageRequest struct {
	EncryptedMessage string `json:"encrypted_message"`
}

// SendMessageResponse acknowledges a stored message.
type SendMessageResponse struct {
	MessageID MessageID `json:"message_id"`
	Status    string    `json:"status"`
	Timestamp int64     `json:"timestamp"`
}

// MarkReadResponse is returned by POST /chat/{id}/mark-all-read.
type MarkReadResponse struct {
	MarkedCount int   `json:"marked_count"`
	ExpiresAt   int64 `json:"expires_at"`
}

// ChatSummary is one row of GET /chat/list.
type ChatSummary struct {
	ChatID      ChatID `json:"chat_id"`
	PeerEmail   Email  `json:"peer_email"`
	PeerUID     UID    `json:"peer_uid,omitempty"`
	CreatedAt   int64  `json:"created_at,omitempty"`
	UnreadCount int    `json:"unread_count"`
}

// ChatList is the body of GET /chat/list.
type ChatList struct {
	Chats []ChatSummary `json:"chats"`
}

// Participant is a chat member as reported by GET /chat/{id}.
type Participant struct {
	Email     Email  `json:"email"`
	PublicKey string `json:"public_key"`
	JoinedAt  *int64 `json:"joined_at"`
}

// ChatDetails is the body of GET /chat/{id}.
type ChatDetails struct {
	ChatID       ChatID              `json:"chat_id"`
	Participants map[UID]Participant `json:"participants"`
	AESKey       SymmetricKey        `json:"aes_key,omitempty"`
	CreatedAt    int64               `json:"created_at"`
	Status       string              `json:"status"`
}
