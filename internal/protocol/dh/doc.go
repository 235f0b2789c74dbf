// Package dh implements the finite-field Diffie-Hellman agreement that gives
// both ends of a chat the same AES session key.
//
// # Overview
//
// Both parties work in the RFC 3526 2048-bit MODP group with generator 2.
// Each side draws a 256-bit private exponent, publishes g^priv mod p as
// lowercase hex, and raises the peer's public value to its own private
// exponent. The resulting shared secret is fed through a single-block
// HKDF-SHA256 to produce a 32-byte key.
//
// # Flow
//
//  1. GenerateKeypair draws the private exponent and computes the public half.
//  2. The public half travels to the peer (or the relay) via EncodePublicKey.
//  3. ParsePublicKey validates what came back; SharedSecret combines it.
//  4. DeriveKey turns the shared secret into the session key.
//  5. Keypair.Wipe clears the private exponent.
//
// # Errors
//
// Any malformed or out-of-range input yields domain.ErrInvalidKeyMaterial and
// no key is derived from it.
//
// # Security notes
//
// The exchange is unauthenticated. A relay that substitutes public keys can
// sit in the middle; compare key fingerprints out of band to detect it.
package dh
