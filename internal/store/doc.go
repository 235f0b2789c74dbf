// Package store persists chat session keys on the local machine.
//
// Two implementations of domain.SessionStore are provided:
//   - BoltSessionStore keeps records in a bbolt database (sessions.db).
//   - SessionFileStore keeps them in a JSON file (sessions.json), optionally
//     sealed under a passphrase with scrypt and ChaCha20-Poly1305
//     (sessions.enc).
//
// Both enforce the same rule: once a chat has a key it never changes. Putting
// a different key for a known chat returns domain.ErrKeyConflict and leaves the
// stored record as it was. All methods are safe for concurrent use.
package store
