// Package crypto exposes the primitives woosh builds its chat protocol on.
//
// Contents
//
//   - Arbitrary-precision modular exponentiation (ModPow)
//   - AES-256-CBC message envelopes with PKCS#7 padding and an HMAC-SHA256
//     tag (Seal, Open)
//   - Short key fingerprints for display and out-of-band comparison
//     (Fingerprint)
//   - Base64 helpers shared by the relay wire format (B64, FromB64)
//
// # Notes
//
// Envelopes are base64(IV || ciphertext || tag). Clients that send or expect
// a bare base64(IV || ciphertext) cannot exchange messages with this format.
//
// Nothing in this package touches the network or disk. Errors from Open are
// deliberately uniform: callers learn that an envelope did not open, never why.
package crypto
