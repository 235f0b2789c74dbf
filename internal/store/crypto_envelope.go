package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"woosh/internal/util/memzero"
)

// sealedFormatVersion is the current version of the sealed file layout.
const sealedFormatVersion = 1

// ErrWrongPassphrase is returned when a sealed file cannot be opened, either
// because the passphrase is wrong or the file was modified.
var ErrWrongPassphrase = errors.New("store: wrong passphrase or corrupted session file")

// sealed is the on-disk JSON structure for a passphrase-protected file.
type sealed struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	Nonce  []byte `json:"nonce"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// encrypt derives a key from passphrase and seals raw. The salt doubles as
// associated data so it cannot be swapped independently of the ciphertext.
func encrypt(passphrase string, raw []byte, N, r, p int) ([]byte, error) {
	salt := make([]byte, 16)
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt, N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sealed{
		V:      sealedFormatVersion,
		Salt:   salt,
		Nonce:  nonce,
		N:      N,
		R:      r,
		P:      p,
		Cipher: aead.Seal(nil, nonce, raw, salt),
	})
}

// decrypt opens a sealed blob with a key derived from passphrase.
func decrypt(passphrase string, b []byte) ([]byte, error) {
	var s sealed
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, ErrWrongPassphrase
	}
	if s.V > sealedFormatVersion {
		return nil, fmt.Errorf("store: unsupported sealed file version %d", s.V)
	}
	if len(s.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrWrongPassphrase
	}

	key, err := scrypt.Key([]byte(passphrase), s.Salt, s.N, s.R, s.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, s.Nonce, s.Cipher, s.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

// scrypt cost parameters for newly sealed files.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }
