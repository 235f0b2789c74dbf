package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/hkdf"

	"woosh/internal/domain"
	"woosh/internal/util/memzero"
)

const (
	// KeySize is the AES-256 key length Seal and Open expect.
	KeySize = 32
	// TagSize is the length of the HMAC-SHA256 tag appended to envelopes.
	TagSize = sha256.Size

	minEnvelope = aes.BlockSize + aes.BlockSize + TagSize
)

var (
	// ErrKeySize is returned when the key is not KeySize bytes.
	ErrKeySize = errors.New("crypto: key must be 32 bytes")

	macInfo = []byte("woosh-chat-mac")
)

// Seal encrypts plaintext under key with AES-256-CBC and PKCS#7 padding.
//
// Every call draws a fresh IV. The returned envelope is
// base64(IV || ciphertext || HMAC-SHA256(IV || ciphertext)), so the receiver
// needs nothing but the key.
func Seal(plaintext, key []byte) (string, error) {
	if len(key) != KeySize {
		return "", ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	defer memzero.Zero(padded)

	out := make([]byte, aes.BlockSize+len(padded), aes.BlockSize+len(padded)+TagSize)
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	mk, err := macKey(key)
	if err != nil {
		return "", err
	}
	defer memzero.Zero(mk)
	out = append(out, tag(mk, out)...)
	return B64(out), nil
}

// Open reverses Seal. Any malformed, tampered or undecodable envelope fails
// with domain.ErrDecryptionFailure.
func Open(envelope string, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	raw, err := FromB64(envelope)
	if err != nil {
		return nil, domain.ErrDecryptionFailure
	}
	if len(raw) < minEnvelope || (len(raw)-TagSize)%aes.BlockSize != 0 {
		return nil, domain.ErrDecryptionFailure
	}

	body, sum := raw[:len(raw)-TagSize], raw[len(raw)-TagSize:]
	mk, err := macKey(key)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(mk)
	if !hmac.Equal(sum, tag(mk, body)) {
		return nil, domain.ErrDecryptionFailure
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv, ct := body[:aes.BlockSize], body[aes.BlockSize:]
	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ct)

	plaintext, ok := pkcs7Unpad(padded, aes.BlockSize)
	if !ok || !utf8.Valid(plaintext) {
		memzero.Zero(padded)
		return nil, domain.ErrDecryptionFailure
	}
	return plaintext, nil
}

func macKey(key []byte) ([]byte, error) {
	mk := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, key, macInfo), mk); err != nil {
		return nil, err
	}
	return mk, nil
}

func tag(mk, data []byte) []byte {
	h := hmac.New(sha256.New, mk)
	h.Write(data)
	return h.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

// pkcs7Unpad checks every padding byte without branching on their values.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	pad := int(data[len(data)-1])
	good := subtle.ConstantTimeLessOrEq(1, pad) & subtle.ConstantTimeLessOrEq(pad, blockSize)
	for i := 1; i <= blockSize; i++ {
		inPad := subtle.ConstantTimeLessOrEq(i, pad)
		match := subtle.ConstantTimeByteEq(data[len(data)-i], byte(pad))
		good &= subtle.ConstantTimeSelect(inPad, match, 1)
	}
	if good != 1 {
		return nil, false
	}
	return data[:len(data)-pad], true
}
