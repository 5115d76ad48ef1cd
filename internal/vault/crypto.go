// Package vault seals opaque session tokens with AES-256-GCM so the telephony
// platform can carry them between turns without reading or altering them.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var (
	// ErrKeySize is returned for keys that are not exactly KeySize bytes.
	ErrKeySize = errors.New("vault key must be 32 bytes")
	// ErrOpen is returned when a sealed value was tampered with or sealed under another key.
	ErrOpen = errors.New("decryption failed (wrong key or tampered data)")
)

// Sealer encrypts and authenticates short payloads under one key.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	// GCM provides authenticated encryption
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: gcm}, nil
}

// ParseKey accepts a key written as 64 hex characters.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("vault key is not hex: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	return key, nil
}

// Seal returns nonce||ciphertext as a hex string.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	// Prepend the nonce so Open can find it
	return hex.EncodeToString(s.aead.Seal(nonce, nonce, plaintext, nil)), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) ([]byte, error) {
	ciphertext, err := hex.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: not hex", ErrOpen)
	}

	nonceSize := s.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrOpen)
	}

	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
