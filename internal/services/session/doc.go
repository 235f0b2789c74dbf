// Package session negotiates chat keys with the relay and keeps the local
// session store consistent with what the relay reports.
//
// A new chat runs a DH exchange against the relay's public half; an existing
// chat takes the relay's stored key as-is. Either way the key is stored under
// the chat id and never silently replaced.
package session
