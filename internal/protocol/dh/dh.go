package dh

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"
	"strings"

	"golang.org/x/crypto/hkdf"

	"woosh/internal/crypto"
	"woosh/internal/domain"
	"woosh/internal/util/memzero"
)

const privateKeyBytes = 32

// Keypair is one side's DH material for a single init attempt.
type Keypair struct {
	Private *big.Int
	Public  *big.Int
}

// Wipe clears the private exponent. The keypair is unusable afterwards.
func (k *Keypair) Wipe() {
	if k.Private != nil {
		memzero.ZeroInt(k.Private)
		k.Private = nil
	}
}

// Agreement binds a group and KDF parameters.
type Agreement struct {
	group Group
	kdf   KDFParams
	rand  io.Reader
}

// Option customises an Agreement.
type Option func(*Agreement)

// WithRandom replaces crypto/rand as the entropy source.
func WithRandom(r io.Reader) Option {
	return func(a *Agreement) { a.rand = r }
}

// New returns an Agreement over group using kdf.
func New(group Group, kdf KDFParams, opts ...Option) *Agreement {
	a := &Agreement{
		group: group,
		kdf: KDFParams{
			Salt: append([]byte(nil), kdf.Salt...),
			Info: append([]byte(nil), kdf.Info...),
		},
		rand: rand.Reader,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Default returns an Agreement over RFC3526Group14 with DefaultKDFParams.
func Default() *Agreement {
	return New(RFC3526Group14(), DefaultKDFParams())
}

// Group returns the group this agreement works in.
func (a *Agreement) Group() Group { return a.group }

// GenerateKeypair draws a 256-bit private exponent and computes g^priv mod p.
// A failing entropy source is returned as an error.
func (a *Agreement) GenerateKeypair() (Keypair, error) {
	buf := make([]byte, privateKeyBytes)
	defer memzero.Zero(buf)

	priv := new(big.Int)
	for priv.Sign() == 0 {
		if _, err := io.ReadFull(a.rand, buf); err != nil {
			return Keypair{}, fmt.Errorf("dh: read entropy: %w", err)
		}
		priv.SetBytes(buf)
	}
	pub, err := crypto.ModPow(a.group.g, priv, a.group.p)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Private: priv, Public: pub}, nil
}

// SharedSecret computes peerPublic^priv mod p after validating both inputs.
func (a *Agreement) SharedSecret(priv, peerPublic *big.Int) (*big.Int, error) {
	if err := a.validatePrivate(priv); err != nil {
		return nil, err
	}
	if err := a.ValidatePublic(peerPublic); err != nil {
		return nil, err
	}
	return crypto.ModPow(peerPublic, priv, a.group.p)
}

// ValidatePublic checks 2 <= y <= p-2.
func (a *Agreement) ValidatePublic(y *big.Int) error {
	if y == nil || y.Cmp(big.NewInt(2)) < 0 {
		return domain.ErrInvalidKeyMaterial
	}
	upper := new(big.Int).Sub(a.group.p, big.NewInt(2))
	if y.Cmp(upper) > 0 {
		return domain.ErrInvalidKeyMaterial
	}
	return nil
}

func (a *Agreement) validatePrivate(x *big.Int) error {
	if x == nil || x.Sign() <= 0 || x.Cmp(a.group.p) >= 0 {
		return domain.ErrInvalidKeyMaterial
	}
	return nil
}

// ParsePublicKey decodes a hex public value and range-checks it.
func (a *Agreement) ParsePublicKey(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, domain.ErrInvalidKeyMaterial
	}
	y, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, domain.ErrInvalidKeyMaterial
	}
	if err := a.ValidatePublic(y); err != nil {
		return nil, err
	}
	return y, nil
}

// EncodePublicKey renders y as minimal lowercase hex.
func EncodePublicKey(y *big.Int) string { return y.Text(16) }

// DeriveKey runs HKDF-SHA256 over the minimal big-endian encoding of secret
// and returns a 32-byte key.
func (a *Agreement) DeriveKey(secret *big.Int) (domain.SymmetricKey, error) {
	if secret == nil || secret.Sign() <= 0 {
		return nil, domain.ErrInvalidKeyMaterial
	}
	ikm := secret.Bytes()
	defer memzero.Zero(ikm)

	key := make([]byte, domain.SymmetricKeySize)
	r := hkdf.New(sha256.New, ikm, a.kdf.Salt, a.kdf.Info)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("dh: hkdf: %w", err)
	}
	return domain.SymmetricKey(key), nil
}

// Agree is the responder shortcut: validate peerHex, combine with priv and
// derive the session key.
func (a *Agreement) Agree(priv *big.Int, peerHex string) (domain.SymmetricKey, error) {
	peer, err := a.ParsePublicKey(peerHex)
	if err != nil {
		return nil, err
	}
	secret, err := a.SharedSecret(priv, peer)
	if err != nil {
		return nil, err
	}
	defer memzero.ZeroInt(secret)
	return a.DeriveKey(secret)
}
