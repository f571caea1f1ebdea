// Package audit emits one structured security log record per guarded
// endpoint invocation.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"huddle/internal/metrics"
)

// Event types for the guarded endpoints.
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventLogout         = "logout"
	EventTokenRefresh   = "token_refresh"
	EventPasswordChange = "password_change"
)

// AnonymousUser is recorded when no attribution source resolves.
const AnonymousUser = "anonymous"

// defaultBodyPeek bounds how much request body is buffered for the
// username fallback when no limit is configured.
const defaultBodyPeek = 1 << 20

// PrincipalFunc reads an authenticated username from the request
// context.
type PrincipalFunc func(ctx context.Context) (string, bool)

// BearerFunc resolves a raw access token to a username.
type BearerFunc func(raw string, now time.Time) (string, bool)

// CookieFunc resolves a raw refresh token to a username.
type CookieFunc func(ctx context.Context, now time.Time, raw string) (string, bool)

// Auditor wraps handlers with security audit logging. Attribution
// resolvers are injected so the package depends on nothing above it.
type Auditor struct {
	log       *slog.Logger
	now       func() time.Time
	maxBody   int64
	principal PrincipalFunc
	bearer    BearerFunc
	cookie    CookieFunc
}

// NewAuditor wires an auditor. Any resolver may be nil; nowFn
// defaults to time.Now. maxBody is the server's request body limit;
// the peek buffer follows it so the auditor never sees less of the
// body than the handler does. Zero means the default cap.
func NewAuditor(log *slog.Logger, nowFn func() time.Time, maxBody int64, principal PrincipalFunc, bearer BearerFunc, cookie CookieFunc) *Auditor {
	if log == nil {
		log = slog.Default()
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if maxBody <= 0 {
		maxBody = defaultBodyPeek
	}
	return &Auditor{log: log, now: nowFn, maxBody: maxBody, principal: principal, bearer: bearer, cookie: cookie}
}

// Wrap records one audit event around next. The record is written
// after the handler returns and never alters the response.
func (a *Auditor) Wrap(event string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := a.peekBody(r)
		sw := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(sw, r)

		now := a.now()
		status := sw.Status()
		outcome := "success"
		if status >= 400 {
			outcome = "failure"
		}

		attrs := []any{
			"event", event,
			"username", a.username(r, body, now),
			"ip", peerIP(r),
			"outcome", outcome,
			"status", status,
		}
		if class := errorClass(status); class != "" {
			attrs = append(attrs, "error_class", class)
		}

		metrics.AuditEvents.WithLabelValues(event, outcome).Inc()
		if outcome == "success" {
			a.log.InfoContext(r.Context(), "audit.event", attrs...)
		} else {
			a.log.WarnContext(r.Context(), "audit.event", attrs...)
		}
	})
}

// username resolves attribution in precedence order: authenticated
// principal, bearer token, refresh cookie, request body, anonymous.
func (a *Auditor) username(r *http.Request, body []byte, now time.Time) string {
	if a.principal != nil {
		if name, ok := a.principal(r.Context()); ok && name != "" {
			return name
		}
	}
	if a.bearer != nil {
		if raw := bearerToken(r); raw != "" {
			if name, ok := a.bearer(raw, now); ok && name != "" {
				return name
			}
		}
	}
	if a.cookie != nil {
		if c, err := r.Cookie("refresh_token"); err == nil && c.Value != "" {
			if name, ok := a.cookie(r.Context(), now, c.Value); ok && name != "" {
				return name
			}
		}
	}
	if name := usernameFromBody(body); name != "" {
		return name
	}
	return AnonymousUser
}

// peekBody buffers the request body so the handler still reads it in
// full and the auditor can consult it afterwards. The handler gets
// the buffered prefix plus whatever the peek cap left unread.
func (a *Auditor) peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, a.maxBody))
	if err != nil {
		_ = r.Body.Close()
		r.Body = http.NoBody
		return nil
	}
	r.Body = readCloser{io.MultiReader(bytes.NewReader(b), r.Body), r.Body}
	return b
}

type readCloser struct {
	io.Reader
	io.Closer
}

func usernameFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Username)
}

// peerIP reports the socket peer address. Forwarding headers are
// spoofable and are never consulted.
func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func errorClass(status int) string {
	switch {
	case status < 400:
		return ""
	case status == http.StatusUnauthorized:
		return "unauthorized"
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusConflict:
		return "conflict"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 500:
		return "internal"
	default:
		return "bad_request"
	}
}

// statusWriter captures the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
