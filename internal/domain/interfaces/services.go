package interfaces

import (
	"context"

	domaintypes "woosh/internal/domain/types"
)

// SessionService negotiates chat keys and reconciles them with the store.
type SessionService interface {
	StartSession(ctx context.Context, peer domaintypes.Email) (domaintypes.SessionKeyRecord, error)
	GetSession(chatID domaintypes.ChatID) (domaintypes.SessionKeyRecord, bool, error)
	ReconcileSession(
		chatID domaintypes.ChatID,
		serverKey domaintypes.SymmetricKey,
	) (domaintypes.SessionKeyRecord, error)
}

// MessageService encrypts, posts, fetches and decrypts chat messages.
type MessageService interface {
	SendMessage(
		ctx context.Context,
		chatID domaintypes.ChatID,
		text string,
	) (domaintypes.SendMessageResponse, error)
	ReceiveMessages(ctx context.Context, chatID domaintypes.ChatID) ([]domaintypes.DecryptedMessage, error)
	MarkAllRead(ctx context.Context, chatID domaintypes.ChatID) (domaintypes.MarkReadResponse, error)
}
