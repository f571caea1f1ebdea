package app

import (
	"testing"
	"time"
)

func TestEnvString(t *testing.T) {
	t.Setenv("HUDDLE_TEST_STR", "  value  ")
	if got := EnvString("HUDDLE_TEST_STR", "def"); got != "value" {
		t.Fatalf("got %q", got)
	}
	if got := EnvString("HUDDLE_TEST_STR_MISSING", "def"); got != "def" {
		t.Fatalf("default: got %q", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("HUDDLE_TEST_BOOL", "true")
	if !EnvBool("HUDDLE_TEST_BOOL", false) {
		t.Fatal("want true")
	}
	t.Setenv("HUDDLE_TEST_BOOL", "not-a-bool")
	if EnvBool("HUDDLE_TEST_BOOL", false) {
		t.Fatal("invalid value must fall back to default")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("HUDDLE_TEST_INT", "42")
	if got := EnvInt("HUDDLE_TEST_INT", 7); got != 42 {
		t.Fatalf("got %d", got)
	}
	t.Setenv("HUDDLE_TEST_INT", "-3")
	if got := EnvInt("HUDDLE_TEST_INT", 7); got != 7 {
		t.Fatalf("non-positive must fall back: got %d", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("HUDDLE_TEST_DUR", "90s")
	if got := EnvDuration("HUDDLE_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("got %v", got)
	}
	t.Setenv("HUDDLE_TEST_DUR", "soon")
	if got := EnvDuration("HUDDLE_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("invalid must fall back: got %v", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	if cfg.HTTPAddr == "" || cfg.LogLevel == "" {
		t.Fatalf("missing defaults: %+v", cfg)
	}
	if cfg.ReadHeaderTimeout <= 0 || cfg.MaxHeaderBytes <= 0 || cfg.MaxBodyBytes <= 0 {
		t.Fatalf("limit defaults not set: %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HUDDLE_HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("HUDDLE_DB_MAX_CONNS", "25")
	t.Setenv("HUDDLE_READINESS_REQUIRE_DB", "true")

	cfg := LoadConfig()
	if cfg.HTTPAddr != "127.0.0.1:9999" {
		t.Fatalf("addr = %q", cfg.HTTPAddr)
	}
	if cfg.DBMaxConns != 25 {
		t.Fatalf("max conns = %d", cfg.DBMaxConns)
	}
	if !cfg.ReadinessRequireDB {
		t.Fatal("readiness flag not read")
	}
}
