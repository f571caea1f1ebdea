package ratelimit

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"huddle/internal/metrics"
)

// IdentityFunc resolves an authenticated identity for a request, used
// as the limiter key when the socket peer address is unusable.
type IdentityFunc func(r *http.Request) (string, bool)

// Middleware applies a Limiter to the wrapped handler.
type Middleware struct {
	limiter  *Limiter
	identity IdentityFunc
	now      func() time.Time
	log      *slog.Logger
}

// NewMiddleware wires a rate-limit middleware. identity may be nil;
// nowFn defaults to time.Now.
func NewMiddleware(limiter *Limiter, identity IdentityFunc, nowFn func() time.Time, log *slog.Logger) *Middleware {
	if nowFn == nil {
		nowFn = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Middleware{limiter: limiter, identity: identity, now: nowFn, log: log}
}

// Wrap enforces the limit before calling next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, class := m.key(r)
		d := m.limiter.TryConsume(key, m.now())

		if !d.Allowed {
			metrics.RateLimitRejected.WithLabelValues(class).Inc()
			m.log.WarnContext(r.Context(), "ratelimit.rejected",
				"key", key, "path", r.URL.Path, "retry_after", d.RetryAfter)
			writeRateLimited(w, d.RetryAfter)
			return
		}

		metrics.RateLimitAllowed.WithLabelValues(class).Inc()
		w.Header().Set("X-Rate-Limit-Remaining", strconv.Itoa(d.Remaining))
		next.ServeHTTP(w, r)
	})
}

// key resolves the limiter key. Only the socket peer address is
// trusted for the IP class; forwarding headers are spoofable and are
// never consulted. Requests with no usable peer and no identity get a
// random key, which gives each one a fresh bucket rather than pooling
// strangers together.
func (m *Middleware) key(r *http.Request) (key, class string) {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return "ip:" + host, "ip"
	}
	if m.identity != nil {
		if id, ok := m.identity(r); ok && id != "" {
			return "user:" + id, "user"
		}
	}
	var b [8]byte
	_, _ = rand.Read(b[:])
	return "anon:" + hex.EncodeToString(b[:]), "anon"
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int64(retryAfter / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      "rate limit exceeded",
		"retryAfter": secs,
	})
}
