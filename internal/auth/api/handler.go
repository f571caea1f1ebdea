// Package api exposes the authentication HTTP surface.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"huddle/internal/auth/session"
	"huddle/internal/auth/tokens"
	"huddle/internal/httpx"
	"huddle/internal/identity"
	"huddle/internal/metrics"
	"huddle/internal/security/password"
)

// Config tunes the HTTP layer.
type Config struct {
	// MaxBodyBytes caps accepted request bodies.
	MaxBodyBytes int64
}

// DefaultConfig returns production limits.
func DefaultConfig() Config {
	return Config{MaxBodyBytes: 1 << 20}
}

// Handler wires the auth endpoints to identity and session services.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	users    identity.Store
	sessions *session.Service
	signer   *tokens.Signer
	pw       password.Config

	dummyHash string
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, users identity.Store, sessions *session.Service, signer *tokens.Signer, pw password.Config) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if users == nil || sessions == nil || signer == nil {
		return nil, errors.New("auth: nil dependency")
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		signer:   signer,
		pw:       pw,
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := pw.Hash("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires auth routes onto the provided mux. wrap is applied to
// every route; typically the audit and rate-limit middleware composed
// by the app.
func (h *Handler) Register(mux *http.ServeMux, wrap func(event string, next http.Handler) http.Handler) {
	if wrap == nil {
		wrap = func(_ string, next http.Handler) http.Handler { return next }
	}
	mux.Handle("POST /api/auth/register", wrap("register", http.HandlerFunc(h.handleRegister)))
	mux.Handle("POST /api/auth/login", wrap("login", http.HandlerFunc(h.handleLogin)))
	mux.Handle("POST /api/auth/refresh", wrap("token_refresh", http.HandlerFunc(h.handleRefresh)))
	mux.Handle("POST /api/auth/logout", wrap("logout", http.HandlerFunc(h.handleLogout)))
	mux.Handle("POST /api/auth/change-password", wrap("password_change", h.RequireAuth(http.HandlerFunc(h.handleChangePassword))))
	mux.Handle("GET /api/auth/check-username", http.HandlerFunc(h.handleCheckUsername))
	mux.Handle("GET /api/auth/users", h.RequireAuth(http.HandlerFunc(h.handleUsers)))
}

// ---- request/response shapes ----

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type checkUsernameResponse struct {
	Exists bool `json:"exists"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username := identity.NormalizeUsername(req.Username)
	if username == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username is required")
		return
	}
	if err := h.pw.Validate(req.Password); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "weak_password", err.Error())
		return
	}

	hash, err := h.pw.Hash(req.Password)
	if err != nil {
		h.log.Error("auth.register.hash.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	if _, err := h.users.Create(ctx, now, username, hash); err != nil {
		switch {
		case errors.Is(err, identity.ErrDuplicateUsername):
			httpx.WriteError(w, http.StatusConflict, "username_taken", "username already taken")
		case errors.Is(err, identity.ErrInvalidInput):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username is required")
		default:
			h.log.Error("auth.register.fail", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	httpx.WriteText(w, http.StatusOK, "User registered successfully")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username := identity.NormalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	user, err := h.users.GetByUsername(ctx, username)
	if err != nil {
		// Timing resistance: run a dummy verify when the user is missing.
		if h.dummyHash != "" {
			_, _ = h.pw.Verify(h.dummyHash, req.Password)
		}
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	okPw, err := h.pw.Verify(user.PasswordHash, req.Password)
	if err != nil || !okPw {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	if _, err := h.sessions.Issue(ctx, now, user.ID, w); err != nil {
		h.log.Error("auth.login.issue.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	access, _, err := h.signer.IssueAccess(user.Username, now)
	if err != nil {
		h.log.Error("auth.login.access.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse{Token: access})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := session.ReadCookie(r)
	if raw == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired refresh token")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	rot, err := h.sessions.Rotate(ctx, now, raw, w)
	if err != nil {
		// Reuse, expiry, mismatch, and unknown jti all answer the same
		// generic 401; the distinctions surface only in logs and metrics.
		switch {
		case errors.Is(err, session.ErrReuseDetected):
			metrics.SessionReuseDetected.Inc()
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired refresh token")
		case errors.Is(err, session.ErrTokenInvalid),
			errors.Is(err, session.ErrSessionNotFound),
			errors.Is(err, session.ErrTokenMismatch),
			errors.Is(err, session.ErrSessionExpired):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired refresh token")
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	metrics.SessionsRotated.Inc()
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{Token: rot.AccessToken})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	h.sessions.Logout(r.Context(), now, session.ReadCookie(r), w)
	httpx.WriteText(w, http.StatusOK, "Logged out")
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	username, ok := CurrentUser(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req changePasswordRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if err := h.pw.Validate(req.NewPassword); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "weak_password", err.Error())
		return
	}

	ctx := r.Context()
	user, err := h.users.GetByUsername(ctx, username)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	okPw, err := h.pw.Verify(user.PasswordHash, req.CurrentPassword)
	if err != nil || !okPw {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	hash, err := h.pw.Hash(req.NewPassword)
	if err != nil {
		h.log.Error("auth.change_password.hash.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	if err := h.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		h.log.Error("auth.change_password.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	username := identity.NormalizeUsername(r.URL.Query().Get("username"))
	if username == "" {
		httpx.WriteJSON(w, http.StatusOK, checkUsernameResponse{Exists: false})
		return
	}

	exists, err := h.users.UsernameExists(r.Context(), username)
	if err != nil {
		h.log.Error("auth.check_username.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, checkUsernameResponse{Exists: exists})
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.log.Error("auth.users.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Username: u.Username})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// IdentityFromRequest resolves the username behind a bearer token, for
// the rate limiter's key fallback.
func (h *Handler) IdentityFromRequest(r *http.Request) (string, bool) {
	if name, ok := CurrentUser(r.Context()); ok {
		return name, true
	}
	raw := BearerToken(r)
	if raw == "" {
		return "", false
	}
	name, err := h.signer.VerifyAccess(raw, time.Now().UTC())
	if err != nil {
		return "", false
	}
	return name, true
}
