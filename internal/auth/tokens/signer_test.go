package tokens

import (
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.RefreshSecret = []byte(strings.Repeat("r", 32))
	return cfg
}

func TestAccess_RoundTrip(t *testing.T) {
	s, err := NewSigner(testConfig())
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	now := time.Now().UTC()
	raw, exp, err := s.IssueAccess("alice", now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if !exp.After(now) {
		t.Fatalf("expected exp after now")
	}

	username, err := s.VerifyAccess(raw, now.Add(time.Second))
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if username != "alice" {
		t.Fatalf("subject mismatch: %q", username)
	}
}

func TestAccess_Expired(t *testing.T) {
	s, err := NewSigner(testConfig())
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	now := time.Now().UTC()
	raw, _, err := s.IssueAccess("alice", now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if _, err := s.VerifyAccess(raw, now.Add(16*time.Minute)); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAccess_RefuseRefreshKey(t *testing.T) {
	s, err := NewSigner(testConfig())
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	// A refresh token must never pass access verification: separate keys.
	now := time.Now().UTC()
	raw, _, err := s.IssueRefresh("user-1", "jti-1", now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, err := s.VerifyAccess(raw, now); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestRefresh_RoundTrip(t *testing.T) {
	s, err := NewSigner(testConfig())
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	now := time.Now().UTC()
	raw, exp, err := s.IssueRefresh("user-1", "jti-1", now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	claims, err := s.VerifyRefresh(raw, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if claims.UserID != "user-1" || claims.TokenID != "jti-1" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if !claims.ExpiresAt.Equal(exp.Truncate(time.Second)) {
		t.Fatalf("exp mismatch: %v vs %v", claims.ExpiresAt, exp)
	}
}

func TestRefresh_TamperedSignature(t *testing.T) {
	s, err := NewSigner(testConfig())
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	now := time.Now().UTC()
	raw, _, err := s.IssueRefresh("user-1", "jti-1", now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	tampered := raw[:len(raw)-2] + "xx"
	if _, err := s.VerifyRefresh(tampered, now); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	if _, err := s.VerifyRefresh("not-a-jwt", now); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSecret = cfg.AccessSecret
	if _, err := NewSigner(cfg); err != ErrConfig {
		t.Fatalf("expected ErrConfig for shared secrets, got %v", err)
	}

	cfg = testConfig()
	cfg.AccessSecret = []byte("short")
	if _, err := NewSigner(cfg); err != ErrConfig {
		t.Fatalf("expected ErrConfig for short secret, got %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("HUDDLE_JWT_ACCESS_SECRET", strings.Repeat("a", 32))
	t.Setenv("HUDDLE_JWT_REFRESH_SECRET", strings.Repeat("r", 32))
	t.Setenv("HUDDLE_JWT_ACCESS_TTL", "10m")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.AccessTTL != 10*time.Minute {
		t.Fatalf("access ttl override failed: %v", cfg.AccessTTL)
	}
	if cfg.RefreshTTL != 30*24*time.Hour {
		t.Fatalf("unexpected refresh ttl: %v", cfg.RefreshTTL)
	}

	t.Setenv("HUDDLE_JWT_REFRESH_SECRET", "")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
