package session

import (
	"net/http"
	"time"
)

const (
	// CookieName is the refresh-token cookie name.
	CookieName = "refresh_token"

	// CookiePath scopes the cookie to the refresh endpoint so the token
	// never rides along on unrelated requests.
	CookiePath = "/api/auth/refresh"
)

// WriteCookie sets the refresh-token cookie on the response.
//
// Secure plus SameSite=None is required for the cross-origin SPA; the
// token itself is the only credential, so HttpOnly keeps scripts out.
func WriteCookie(w http.ResponseWriter, raw string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    raw,
		Path:     CookiePath,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// ClearCookie expires the refresh-token cookie. Attributes must match
// WriteCookie or browsers keep the original cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// ReadCookie extracts the raw refresh token from the request, or ""
// when the cookie is absent.
func ReadCookie(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
