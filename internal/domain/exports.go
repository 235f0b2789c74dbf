package domain

import (
	interfaces "woosh/internal/domain/interfaces"
	types "woosh/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	ChatID              = types.ChatID
	Email               = types.Email
	UID                 = types.UID
	MessageID           = types.MessageID
	Fingerprint         = types.Fingerprint
	SymmetricKey        = types.SymmetricKey
	SessionKeyRecord    = types.SessionKeyRecord
	MessageStatus       = types.MessageStatus
	Message             = types.Message
	DecryptedMessage    = types.DecryptedMessage
	InitChatRequest     = types.InitChatRequest
	InitChatResponse    = types.InitChatResponse
	MessagesResponse    = types.MessagesResponse
	SendMessageRequest  = types.SendMessageRequest
	SendMessageResponse = types.SendMessageResponse
	MarkReadResponse    = types.MarkReadResponse
	ChatSummary         = types.ChatSummary
	ChatList            = types.ChatList
	Participant         = types.Participant
	ChatDetails         = types.ChatDetails
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	RelayClient    = interfaces.RelayClient
	SessionStore   = interfaces.SessionStore
	TokenStore     = interfaces.TokenStore
	SessionService = interfaces.SessionService
	MessageService = interfaces.MessageService
)

// Re-exported constants.
const (
	SymmetricKeySize   = types.SymmetricKeySize
	StatusUnread       = types.StatusUnread
	StatusRead         = types.StatusRead
	InitStatusNew      = types.InitStatusNew
	InitStatusCreated  = types.InitStatusCreated
	InitStatusExisting = types.InitStatusExisting
)
