package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"woosh/internal/domain"
)

// Fingerprint returns a short hex fingerprint of key material, grouped in
// fours so two people can read it to each other.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(key []byte) domain.Fingerprint {
	sum := sha256.Sum256(key)
	h := hex.EncodeToString(sum[:10])
	groups := make([]string, 0, len(h)/4)
	for i := 0; i < len(h); i += 4 {
		groups = append(groups, h[i:i+4])
	}
	return domain.Fingerprint(strings.Join(groups, " "))
}
