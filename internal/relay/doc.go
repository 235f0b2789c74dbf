// Package relay provides an HTTP implementation of the domain.RelayClient
// interface used by woosh.
//
// The relay is an untrusted store-and-forward service: it brokers the DH
// exchange for new chats and keeps ciphertext until the recipient has read it
// and the expiry window has passed.
//
// Supported operations:
//   - POST /chat/init to start or look up a chat.
//   - GET /chat/{id}/messages, POST /chat/{id}/send.
//   - POST /chat/{id}/mark-all-read to start the expiry countdown.
//   - GET /chat/list and GET /chat/{id}.
//
// Every request carries the bearer token from the TokenStore and honours the
// caller's context. Non-2xx answers are returned as *Error, which unwraps to
// domain.ErrRelayUnauthorized (401/403) or domain.ErrRelayUnavailable (5xx);
// transport failures also wrap domain.ErrRelayUnavailable.
package relay
