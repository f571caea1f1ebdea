package password

import "testing"

func TestHashAndVerify_OK(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cost = 4 // keep the test fast

	h, err := cfg.Hash("P@ssw0rd1-strong")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "P@ssw0rd1-strong")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cost = 4

	h, err := cfg.Hash("P@ssw0rd1-strong")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "wrong password")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := DefaultConfig()

	ok, err := cfg.Verify("not-a-hash", "whatever")
	if err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
	if ok {
		t.Fatalf("expected false")
	}
}

func TestValidate_MinMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinLength = 8
	cfg.MaxLength = 16

	if err := cfg.Validate("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := cfg.Validate("this password is definitely too long"); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if err := cfg.Validate("goodpassw0rd"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("HUDDLE_BCRYPT_COST", "6")
	t.Setenv("HUDDLE_PASSWORD_MIN_LEN", "10")
	t.Setenv("HUDDLE_PASSWORD_MAX_LEN", "64")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Cost != 6 || cfg.MinLength != 10 || cfg.MaxLength != 64 {
		t.Fatalf("override failed: %+v", cfg)
	}
}

func TestFromEnv_InvalidMinMax(t *testing.T) {
	t.Setenv("HUDDLE_PASSWORD_MIN_LEN", "20")
	t.Setenv("HUDDLE_PASSWORD_MAX_LEN", "10")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error")
	}
}
