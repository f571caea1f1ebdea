package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"huddle/internal/httpx"
)

type principalKey struct{}

// WithUser attaches the authenticated username to ctx.
func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, principalKey{}, username)
}

// CurrentUser reads the authenticated username from ctx.
func CurrentUser(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(principalKey{}).(string)
	return name, ok && name != ""
}

// BearerToken extracts the raw token from an Authorization header, or
// "" when the header is missing or not of the Bearer scheme.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// RequireAuth verifies the bearer access token and attaches the
// principal before calling next. Missing and invalid tokens get the
// same generic 401.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := BearerToken(r)
		if raw == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		username, err := h.signer.VerifyAccess(raw, time.Now().UTC())
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), username)))
	})
}
