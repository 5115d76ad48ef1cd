package vault

import (
	"errors"
	"strings"
	"testing"
)

var testKey = []byte("thisis32byteslongsecretkey123456") // 32 bytes for AES-256

func TestSealOpen(t *testing.T) {
	s, err := NewSealer(testKey)
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}
	plaintext := `[{"role":"system","content":"Hello Alex"}]`

	sealed, err := s.Seal([]byte(plaintext))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if strings.Contains(sealed, "Alex") {
		t.Fatal("Sealed value should not leak the plaintext")
	}

	opened, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if string(opened) != plaintext {
		t.Errorf("Expected %s, got %s", plaintext, opened)
	}
}

func TestOpenWithWrongKey(t *testing.T) {
	s1, _ := NewSealer(testKey)
	s2, _ := NewSealer([]byte("another32byteslongsecretkey65432"))

	sealed, err := s1.Seal([]byte("Secret message"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	_, err = s2.Open(sealed)
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("Expected ErrOpen with wrong key, got %v", err)
	}
}

func TestInvalidKeySize(t *testing.T) {
	_, err := NewSealer([]byte("shortkey"))
	if !errors.Is(err, ErrKeySize) {
		t.Fatalf("Expected ErrKeySize, got %v", err)
	}
}

func TestOpenMalformed(t *testing.T) {
	s, _ := NewSealer(testKey)

	if _, err := s.Open("not-hex"); !errors.Is(err, ErrOpen) {
		t.Errorf("Expected ErrOpen for malformed hex, got %v", err)
	}
	// AES-GCM nonce is 12 bytes, so 3 bytes is definitely too short.
	if _, err := s.Open("abcdef"); !errors.Is(err, ErrOpen) {
		t.Errorf("Expected ErrOpen for short ciphertext, got %v", err)
	}
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey(" 000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f\n")
	if err != nil || len(key) != KeySize || key[31] != 0x1f {
		t.Errorf("ParseKey failed: %v (%x)", err, key)
	}

	if _, err := ParseKey("abcd"); !errors.Is(err, ErrKeySize) {
		t.Errorf("Expected ErrKeySize, got %v", err)
	}
	if _, err := ParseKey("zz"); err == nil {
		t.Error("Expected error for non-hex key")
	}
}
