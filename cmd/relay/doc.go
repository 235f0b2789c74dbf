// Package main runs the in-memory HTTP relay used by woosh during development
// and tests. It brokers DH key agreement between two users and stores
// ciphertext messages until they expire after being read.
//
// Commands
//
//	relay serve                       Serve on RELAY_ADDR (default :8080)
//	relay token --email E [--uid U]   Print an HS256 bearer token
//
// Configuration comes from RELAY_* environment variables, optionally seeded
// from --env-file. RELAY_JWT_SECRET is required.
//
// HTTP API (all routes need "Authorization: Bearer <token>")
//
//	POST /chat/init { "peer_email", "public_key" }
//	    Create the chat with a relay-side DH, or return the existing one.
//
//	GET /chat/list
//	    Chats of the caller with unread counts.
//
//	GET /chat/{id}
//	    Participants, creation time and the chat key.
//
//	GET /chat/{id}/messages
//	    Unexpired ciphertext messages plus the chat key.
//
//	POST /chat/{id}/send { "encrypted_message" }
//	    Store a message as unread.
//
//	POST /chat/{id}/mark-all-read
//	POST /chat/{id}/mark-read { "message_id" }
//	    Mark the peer's messages read and start their expiry countdown.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Errors are JSON bodies of the form {"detail": "..."}.
//   - An access log records method, path, status and duration per request.
package main
