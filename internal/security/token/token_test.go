package token

import "testing"

func TestHashSHA256Hex_Stable(t *testing.T) {
	a := HashSHA256Hex("some-refresh-token")
	b := HashSHA256Hex("some-refresh-token")
	if a != b {
		t.Fatalf("digest not stable")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == HashSHA256Hex("another-token") {
		t.Fatalf("distinct inputs collided")
	}
}

func TestHashRefreshTokenHex_HMACMode(t *testing.T) {
	t.Setenv(HMACEnvKey, "0123456789abcdef0123456789abcdef")

	plain := HashSHA256Hex("tok")
	hmacHex := HashRefreshTokenHex("tok")
	if plain == hmacHex {
		t.Fatalf("HMAC mode produced plain SHA-256 digest")
	}
	if len(hmacHex) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(hmacHex))
	}
}

func TestHMACKeyFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HMACKeyFromEnv(32); err != ErrHMACKeyMissing {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HMACKeyFromEnv(32); err != ErrHMACKeyTooShort {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	t.Setenv(HMACEnvKey, "0123456789abcdef0123456789abcdef")
	key, err := HMACKeyFromEnv(32)
	if err != nil {
		t.Fatalf("HMACKeyFromEnv: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("unexpected key length %d", len(key))
	}
}

func TestConstantTimeEqualHex(t *testing.T) {
	a := HashSHA256Hex("x")
	if !ConstantTimeEqualHex(a, a) {
		t.Fatalf("expected equal")
	}
	if ConstantTimeEqualHex(a, HashSHA256Hex("y")) {
		t.Fatalf("expected not equal")
	}
	if ConstantTimeEqualHex(a, a[:32]) {
		t.Fatalf("length mismatch must not match")
	}
	if ConstantTimeEqualHex("", "") {
		t.Fatalf("empty inputs must not match")
	}
}
