// Package cryptox implements the vault's envelope encryption: AES-256-GCM
// under a single process-wide master key, with hex-encoded ciphertext and IV.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/stackdeck/credvault/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// MasterKeySize is the AES-256 key size in bytes.
	MasterKeySize = 32

	// ivSize is the GCM nonce size in bytes (96 bits).
	ivSize = 12

	// ivHexLen is the expected length of a hex-encoded IV.
	ivHexLen = ivSize * 2
)

// ParseMasterKey validates and decodes the configured master key. The key
// must be exactly 64 hex characters; an optional "0x" prefix is stripped
// first. An invalid key is a fatal startup condition for the server, not a
// per-request error.
func ParseMasterKey(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != MasterKeySize*2 {
		return nil, fmt.Errorf("master key must be %d hex characters, got %d", MasterKeySize*2, len(s))
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("master key is not valid hex: %w", err)
	}
	return key, nil
}

// DeriveMasterKey derives a 32-byte key from a passphrase and salt using
// argon2id. Used by the vaultctl keygen command; the server itself always
// receives the key directly as hex.
func DeriveMasterKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, MasterKeySize)
}

// Engine encrypts and decrypts secret values with the master key. The key is
// loaded once at process start and never changes, so an Engine is safe to
// share across concurrently handled requests.
type Engine struct {
	aead cipher.AEAD
}

// NewEngine builds an Engine from a raw 32-byte master key.
func NewEngine(key []byte) (*Engine, error) {
	if len(key) != MasterKeySize {
		return nil, fmt.Errorf("expected %d-byte key, got %d", MasterKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Engine{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random 12-byte IV and returns the
// hex-encoded ciphertext (including the GCM tag) and IV.
func (e *Engine) Encrypt(plaintext string) (ciphertextHex, ivHex string, err error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", "", err
	}

	ciphertext := e.aead.Seal(nil, iv, []byte(plaintext), nil)

	return hex.EncodeToString(ciphertext), hex.EncodeToString(iv), nil
}

// Decrypt opens a hex-encoded ciphertext/IV pair. Inputs are expected to be
// canonical hex (see codecx.Normalize). A malformed IV length or non-hex
// input fails with common.ErrFormat before any AEAD work; a tag mismatch
// (corruption, tampering, wrong key) fails with common.ErrCrypto and never
// yields partial plaintext.
func (e *Engine) Decrypt(ciphertextHex, ivHex string) (string, error) {
	if len(ivHex) != ivHexLen {
		return "", fmt.Errorf("%w: iv must be %d hex characters, got %d", common.ErrFormat, ivHexLen, len(ivHex))
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("%w: invalid iv hex", common.ErrFormat)
	}
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext hex", common.ErrFormat)
	}

	plaintext, err := e.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", common.ErrCrypto)
	}

	return string(plaintext), nil
}
