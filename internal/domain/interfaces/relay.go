package interfaces

import (
	"context"

	domaintypes "woosh/internal/domain/types"
)

// RelayClient is how we talk to the chat relay. Every call carries the bearer
// token and honours ctx for cancellation.
type RelayClient interface {
	InitChat(
		ctx context.Context,
		request domaintypes.InitChatRequest,
	) (domaintypes.InitChatResponse, error)
	FetchMessages(
		ctx context.Context,
		chatID domaintypes.ChatID,
	) (domaintypes.MessagesResponse, error)
	SendMessage(
		ctx context.Context,
		chatID domaintypes.ChatID,
		envelope string,
	) (domaintypes.SendMessageResponse, error)
	MarkAllRead(ctx context.Context, chatID domaintypes.ChatID) (domaintypes.MarkReadResponse, error)
	ListChats(ctx context.Context) ([]domaintypes.ChatSummary, error)
	ChatDetails(ctx context.Context, chatID domaintypes.ChatID) (domaintypes.ChatDetails, error)
}
