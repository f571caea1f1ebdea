package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"huddle/internal/auth/tokens"
	"huddle/internal/identity"
	sectoken "huddle/internal/security/token"
)

// Service implements issuance, rotation, and revocation of refresh
// sessions on top of a Store.
type Service struct {
	signer *tokens.Signer
	store  Store
	users  identity.Store
	log    *slog.Logger
}

// NewService wires a session service.
func NewService(signer *tokens.Signer, store Store, users identity.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{signer: signer, store: store, users: users, log: log}
}

// Issued describes a freshly created refresh session.
type Issued struct {
	TokenID      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Issue creates a new refresh session for userID, revoking every prior
// session first (single-session policy), and sets the cookie on w.
func (s *Service) Issue(ctx context.Context, now time.Time, userID string, w http.ResponseWriter) (Issued, error) {
	revoked, err := s.store.RevokeAllForUser(ctx, now, userID)
	if err != nil {
		return Issued{}, err
	}
	if revoked > 0 {
		s.log.InfoContext(ctx, "session.superseded", "user_id", userID, "revoked", revoked)
	}

	tokenID := uuid.NewString()
	raw, exp, err := s.signer.IssueRefresh(userID, tokenID, now)
	if err != nil {
		return Issued{}, err
	}

	rec := Record{
		TokenID:   tokenID,
		UserID:    userID,
		TokenHash: sectoken.HashRefreshTokenHex(raw),
		ExpiresAt: exp,
		CreatedAt: now,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return Issued{}, err
	}

	WriteCookie(w, raw, exp.Sub(now))
	return Issued{TokenID: tokenID, RefreshToken: raw, ExpiresAt: exp}, nil
}

// Rotated is the outcome of a successful refresh rotation.
type Rotated struct {
	Username        string
	AccessToken     string
	AccessExpiresAt time.Time
}

// Rotate validates raw, retires its session, issues a successor
// session plus a new access token, and replaces the cookie on w.
//
// Failure modes collapse to distinct sentinel errors for auditing, but
// callers must answer all of them identically (generic 401) so that a
// probing client learns nothing about which stage rejected it.
func (s *Service) Rotate(ctx context.Context, now time.Time, raw string, w http.ResponseWriter) (Rotated, error) {
	claims, err := s.signer.VerifyRefresh(raw, now)
	if err != nil {
		return Rotated{}, ErrTokenInvalid
	}

	tx, err := s.store.BeginRotation(ctx, claims.TokenID)
	if err != nil {
		return Rotated{}, err
	}

	rec := tx.Record()
	if rec.Revoked {
		_ = tx.Rollback(ctx)
		s.log.WarnContext(ctx, "session.reuse_detected",
			"user_id", rec.UserID, "token_id", rec.TokenID)
		return Rotated{}, ErrReuseDetected
	}
	if !sectoken.ConstantTimeEqualHex(rec.TokenHash, sectoken.HashRefreshTokenHex(raw)) {
		_ = tx.Rollback(ctx)
		return Rotated{}, ErrTokenMismatch
	}
	if !rec.ExpiresAt.After(now) {
		_ = tx.Rollback(ctx)
		return Rotated{}, ErrSessionExpired
	}

	// Everything fallible happens before the transaction mutates: a
	// failure after commit would leave the client holding only the
	// revoked token.
	user, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		_ = tx.Rollback(ctx)
		return Rotated{}, err
	}
	access, accessExp, err := s.signer.IssueAccess(user.Username, now)
	if err != nil {
		_ = tx.Rollback(ctx)
		return Rotated{}, err
	}
	nextID := uuid.NewString()
	nextRaw, nextExp, err := s.signer.IssueRefresh(rec.UserID, nextID, now)
	if err != nil {
		_ = tx.Rollback(ctx)
		return Rotated{}, err
	}

	if err := tx.RevokeAllForUser(ctx, now); err != nil {
		_ = tx.Rollback(ctx)
		return Rotated{}, err
	}
	if err := tx.Insert(ctx, Record{
		TokenID:   nextID,
		UserID:    rec.UserID,
		TokenHash: sectoken.HashRefreshTokenHex(nextRaw),
		ExpiresAt: nextExp,
		CreatedAt: now,
	}); err != nil {
		_ = tx.Rollback(ctx)
		return Rotated{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Rotated{}, err
	}

	WriteCookie(w, nextRaw, nextExp.Sub(now))
	s.log.InfoContext(ctx, "session.rotated",
		"user_id", rec.UserID, "old_token_id", rec.TokenID, "new_token_id", nextID)

	return Rotated{
		Username:        user.Username,
		AccessToken:     access,
		AccessExpiresAt: accessExp,
	}, nil
}

// Logout revokes the session behind raw on a best-effort basis and
// always clears the cookie. It never fails the caller: a bad or
// missing token still yields a cleared cookie and a success outcome.
func (s *Service) Logout(ctx context.Context, now time.Time, raw string, w http.ResponseWriter) {
	defer ClearCookie(w)

	if raw == "" {
		return
	}
	claims, err := s.signer.VerifyRefresh(raw, now)
	if err != nil {
		return
	}
	if err := s.store.Revoke(ctx, now, claims.TokenID); err != nil {
		s.log.WarnContext(ctx, "session.logout_revoke_failed",
			"token_id", claims.TokenID, "error", err)
	}
}

// RevokeAll revokes every active session of userID.
func (s *Service) RevokeAll(ctx context.Context, now time.Time, userID string) (int64, error) {
	return s.store.RevokeAllForUser(ctx, now, userID)
}

// UserForToken resolves the username behind a raw refresh token without
// mutating any state. Used for audit attribution only.
func (s *Service) UserForToken(ctx context.Context, now time.Time, raw string) (string, error) {
	claims, err := s.signer.VerifyRefresh(raw, now)
	if err != nil {
		return "", ErrTokenInvalid
	}
	rec, err := s.store.GetByTokenID(ctx, claims.TokenID)
	if err != nil {
		return "", err
	}
	user, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return user.Username, nil
}
