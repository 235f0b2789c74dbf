// Package relayserver is an in-memory development relay implementing the
// woosh chat API.
//
// HTTP API (bearer JWT on every route)
//
//	POST /chat/init {peer_email, public_key}
//	    Start a chat. Self-chats are 400, unknown peers 404. An existing pair
//	    answers "existing" with the stored key; otherwise the relay plays the
//	    peer's side of the DH exchange and answers "created" with its public
//	    key and the derived key.
//
//	GET  /chat/list
//	GET  /chat/{id}
//	GET  /chat/{id}/messages
//	POST /chat/{id}/send {encrypted_message}
//	POST /chat/{id}/mark-all-read
//	POST /chat/{id}/mark-read {message_id}
//
// Behaviour
//
//   - Users are registered from token claims on their first request.
//   - Only participants may touch a chat (403).
//   - A message gets expires_at = read_at + TTL when its recipient marks it
//     read. Expired messages are hidden from listings and purged by the
//     cache janitor.
//   - All state is held in memory and lost on exit. The relay only ever sees
//     ciphertext, though it does learn the chat key because it takes part in
//     the exchange.
package relayserver
