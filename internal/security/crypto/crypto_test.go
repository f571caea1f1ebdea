package crypto

import (
	"bytes"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	box, err := NewBox(testKey())
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	sealed, err := box.Seal("hello group chat")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if sealed == "hello group chat" {
		t.Fatalf("ciphertext equals plaintext")
	}

	plain, err := box.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if plain != "hello group chat" {
		t.Fatalf("round trip mismatch: %q", plain)
	}
}

func TestSeal_NonDeterministic(t *testing.T) {
	box, err := NewBox(testKey())
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	a, _ := box.Seal("same message")
	b, _ := box.Seal("same message")
	if a == b {
		t.Fatalf("expected distinct nonces per seal")
	}
}

func TestOpen_Tampered(t *testing.T) {
	box, err := NewBox(testKey())
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	if _, err := box.Open("not base64 !!!"); err != ErrCiphertextBad {
		t.Fatalf("expected ErrCiphertextBad, got %v", err)
	}
	if _, err := box.Open("c2hvcnQ="); err != ErrCiphertextBad {
		t.Fatalf("expected ErrCiphertextBad for short input, got %v", err)
	}
}

func TestNewBox_BadKey(t *testing.T) {
	if _, err := NewBox([]byte("short")); err != ErrKeyInvalid {
		t.Fatalf("expected ErrKeyInvalid, got %v", err)
	}
}

func TestNewBoxFromEnv(t *testing.T) {
	t.Setenv(KeyEnvVar, "")
	if _, err := NewBoxFromEnv(); err != ErrKeyMissing {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}

	t.Setenv(KeyEnvVar, "zz")
	if _, err := NewBoxFromEnv(); err != ErrKeyInvalid {
		t.Fatalf("expected ErrKeyInvalid, got %v", err)
	}

	t.Setenv(KeyEnvVar, "4242424242424242424242424242424242424242424242424242424242424242")
	if _, err := NewBoxFromEnv(); err != nil {
		t.Fatalf("NewBoxFromEnv: %v", err)
	}
}
