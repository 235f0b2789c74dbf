package domain

import "errors"

var (
	// ErrInvalidKeyMaterial marks malformed or out-of-range DH inputs. No key
	// may be derived after it.
	ErrInvalidKeyMaterial = errors.New("invalid key material")

	// ErrKeyConflict means a stored chat key disagrees with a newly received one.
	ErrKeyConflict = errors.New("session key conflict")

	// ErrDecryptionFailure covers every way a ciphertext envelope can fail to open.
	ErrDecryptionFailure = errors.New("decryption failed")

	// ErrRelayUnauthorized is returned for 401/403 answers from the relay.
	ErrRelayUnauthorized = errors.New("relay: unauthorized")

	// ErrRelayUnavailable is returned for network failures and 5xx answers.
	ErrRelayUnavailable = errors.New("relay: unavailable")

	// ErrNoSession indicates there is no stored key for the chat.
	ErrNoSession = errors.New("no session key for chat")

	// ErrNotReady is returned when sending before the chat key is known.
	ErrNotReady = errors.New("conversation is not ready")

	// ErrClosed is returned by operations on a closed conversation view.
	ErrClosed = errors.New("conversation is closed")
)
