// Package crypto provides AES-GCM sealing for chat message content.
//
// Messages are encrypted at rest; the key is externally provisioned
// (HUDDLE_CHAT_ENCRYPTION_KEY, 32 bytes hex-encoded). Ciphertexts are
// stored as base64(nonce || sealed).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"os"
	"strings"
)

// Public, stable errors for callers.
var (
	ErrKeyMissing    = errors.New("encryption key missing")
	ErrKeyInvalid    = errors.New("encryption key invalid")
	ErrCiphertextBad = errors.New("ciphertext invalid")
)

// KeyEnvVar is the env var holding the hex-encoded 32-byte AES key.
// #nosec G101 -- not a credential; it's an environment variable name.
const KeyEnvVar = "HUDDLE_CHAT_ENCRYPTION_KEY"

// Box seals and opens message payloads with a fixed AES-256-GCM key.
type Box struct {
	aead cipher.AEAD
}

// NewBox constructs a Box from a raw 32-byte key.
func NewBox(key []byte) (*Box, error) {
	if len(key) != 32 {
		return nil, ErrKeyInvalid
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrKeyInvalid
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrKeyInvalid
	}
	return &Box{aead: aead}, nil
}

// NewBoxFromEnv constructs a Box from HUDDLE_CHAT_ENCRYPTION_KEY.
func NewBoxFromEnv() (*Box, error) {
	raw := strings.TrimSpace(os.Getenv(KeyEnvVar))
	if raw == "" {
		return nil, ErrKeyMissing
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, ErrKeyInvalid
	}
	return NewBox(key)
}

// Seal encrypts plaintext and returns base64(nonce || ciphertext).
func (b *Box) Seal(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrCiphertextBad
	}
	ns := b.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrCiphertextBad
	}
	plain, err := b.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrCiphertextBad
	}
	return string(plain), nil
}
