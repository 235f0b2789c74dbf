package types

import "crypto/subtle"

// SymmetricKeySize is the length of a derived conversation key (AES-256).
const SymmetricKeySize = 32

// SymmetricKey is a per-conversation AES key. It encodes as base64 in JSON.
type SymmetricKey []byte

// Equal reports whether k and other hold the same bytes, in constant time.
func (k SymmetricKey) Equal(other SymmetricKey) bool {
	return len(k) == len(other) && subtle.ConstantTimeCompare(k, other) == 1
}

// IsZero reports whether no key material is present.
func (k SymmetricKey) IsZero() bool { return len(k) == 0 }

// String keeps key bytes out of logs and error messages.
func (k SymmetricKey) String() string {
	if len(k) == 0 {
		return "<none>"
	}
	return "<redacted>"
}
