package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type logLine map[string]any

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) logLine {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatalf("no log output")
	}
	var m logLine
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	return m
}

func TestWrapRecordsSuccess(t *testing.T) {
	log, buf := captureLogger()
	a := NewAuditor(log, nil, 0, nil, nil, nil)

	h := a.Wrap(EventLogin, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"alice","password":"pw"}`))
	req.RemoteAddr = "10.1.2.3:40000"
	h.ServeHTTP(httptest.NewRecorder(), req)

	m := lastLine(t, buf)
	if m["event"] != EventLogin {
		t.Fatalf("event = %v", m["event"])
	}
	if m["username"] != "alice" {
		t.Fatalf("username = %v", m["username"])
	}
	if m["ip"] != "10.1.2.3" {
		t.Fatalf("ip = %v", m["ip"])
	}
	if m["outcome"] != "success" {
		t.Fatalf("outcome = %v", m["outcome"])
	}
	if _, ok := m["error_class"]; ok {
		t.Fatalf("error_class set on success")
	}
}

func TestWrapRecordsFailureClass(t *testing.T) {
	log, buf := captureLogger()
	a := NewAuditor(log, nil, 0, nil, nil, nil)

	h := a.Wrap(EventLogin, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.1.2.3:40000"
	h.ServeHTTP(httptest.NewRecorder(), req)

	m := lastLine(t, buf)
	if m["outcome"] != "failure" {
		t.Fatalf("outcome = %v", m["outcome"])
	}
	if m["error_class"] != "unauthorized" {
		t.Fatalf("error_class = %v", m["error_class"])
	}
	if m["username"] != AnonymousUser {
		t.Fatalf("username = %v", m["username"])
	}
}

func TestUsernamePrecedence(t *testing.T) {
	principal := func(ctx context.Context) (string, bool) {
		if v, ok := ctx.Value(ctxKey{}).(string); ok {
			return v, true
		}
		return "", false
	}
	bearer := func(raw string, _ time.Time) (string, bool) {
		if raw == "good-access" {
			return "bearer-user", true
		}
		return "", false
	}
	cookie := func(_ context.Context, _ time.Time, raw string) (string, bool) {
		if raw == "good-refresh" {
			return "cookie-user", true
		}
		return "", false
	}

	cases := []struct {
		name      string
		principal string
		auth      string
		cookieVal string
		body      string
		want      string
	}{
		{"principal wins", "ctx-user", "Bearer good-access", "good-refresh", `{"username":"body-user"}`, "ctx-user"},
		{"bearer next", "", "Bearer good-access", "good-refresh", `{"username":"body-user"}`, "bearer-user"},
		{"cookie next", "", "Bearer bad", "good-refresh", `{"username":"body-user"}`, "cookie-user"},
		{"body next", "", "", "stale", `{"username":"body-user"}`, "body-user"},
		{"anonymous last", "", "", "", `{}`, AnonymousUser},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log, buf := captureLogger()
			a := NewAuditor(log, nil, 0, principal, bearer, cookie)
			h := a.Wrap(EventLogin, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tc.body))
			req.RemoteAddr = "10.0.0.1:1"
			if tc.principal != "" {
				req = req.WithContext(context.WithValue(req.Context(), ctxKey{}, tc.principal))
			}
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			if tc.cookieVal != "" {
				req.AddCookie(&http.Cookie{Name: "refresh_token", Value: tc.cookieVal})
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if m := lastLine(t, buf); m["username"] != tc.want {
				t.Fatalf("username = %v, want %v", m["username"], tc.want)
			}
		})
	}
}

type ctxKey struct{}

func TestBodyStillReadableByHandler(t *testing.T) {
	log, _ := captureLogger()
	a := NewAuditor(log, nil, 0, nil, nil, nil)

	var got string
	h := a.Wrap(EventRegister, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("handler read body: %v", err)
		}
		got = string(b)
		w.WriteHeader(http.StatusCreated)
	}))

	const body = `{"username":"alice","password":"pw"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:1"
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != body {
		t.Fatalf("handler saw body %q", got)
	}
}

func TestBodyBeyondPeekCapReachesHandler(t *testing.T) {
	log, buf := captureLogger()
	a := NewAuditor(log, nil, 16, nil, nil, nil)

	var got string
	h := a.Wrap(EventRegister, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("handler read body: %v", err)
		}
		got = string(b)
		w.WriteHeader(http.StatusCreated)
	}))

	body := `{"username":"` + strings.Repeat("a", 200) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:1"
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != body {
		t.Fatalf("handler saw %d of %d body bytes", len(got), len(body))
	}
	// The truncated peek is not valid JSON, so attribution falls back.
	if m := lastLine(t, buf); m["username"] != AnonymousUser {
		t.Fatalf("username = %v", m["username"])
	}
}

func TestIPIgnoresForwardingHeaders(t *testing.T) {
	log, buf := captureLogger()
	a := NewAuditor(log, nil, 0, nil, nil, nil)

	h := a.Wrap(EventLogout, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.RemoteAddr = "10.9.9.9:555"
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	req.Header.Set("X-Real-IP", "203.0.113.51")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if m := lastLine(t, buf); m["ip"] != "10.9.9.9" {
		t.Fatalf("ip = %v, want socket peer", m["ip"])
	}
}

func TestStatusDefaultsTo200(t *testing.T) {
	log, buf := captureLogger()
	a := NewAuditor(log, nil, 0, nil, nil, nil)

	h := a.Wrap(EventLogin, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1"
	h.ServeHTTP(httptest.NewRecorder(), req)

	m := lastLine(t, buf)
	if m["status"] != float64(http.StatusOK) {
		t.Fatalf("status = %v", m["status"])
	}
	if m["outcome"] != "success" {
		t.Fatalf("outcome = %v", m["outcome"])
	}
}

func TestErrorClassMapping(t *testing.T) {
	cases := map[int]string{
		http.StatusBadRequest:          "bad_request",
		http.StatusUnauthorized:        "unauthorized",
		http.StatusForbidden:           "forbidden",
		http.StatusNotFound:            "not_found",
		http.StatusConflict:            "conflict",
		http.StatusTooManyRequests:     "rate_limited",
		http.StatusInternalServerError: "internal",
	}
	for status, want := range cases {
		if got := errorClass(status); got != want {
			t.Fatalf("errorClass(%d) = %q, want %q", status, got, want)
		}
	}
	if got := errorClass(http.StatusOK); got != "" {
		t.Fatalf("errorClass(200) = %q", got)
	}
}
