package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned for any token that fails verification:
// malformed, wrong signature, wrong class, or expired.
var ErrTokenInvalid = errors.New("invalid token")

// RefreshClaims is the verified content of a refresh token.
type RefreshClaims struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Signer produces and verifies both token classes.
type Signer struct {
	cfg Config
}

// NewSigner validates cfg and constructs a Signer.
func NewSigner(cfg Config) (*Signer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Signer{cfg: cfg}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (s *Signer) AccessTTL() time.Duration { return s.cfg.AccessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (s *Signer) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// IssueAccess mints a signed access token for the given username.
func (s *Signer) IssueAccess(username string, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.cfg.AccessTTL)

	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccess validates an access token and returns its subject (username).
func (s *Signer) VerifyAccess(raw string, now time.Time) (string, error) {
	claims, err := s.parse(raw, s.cfg.AccessSecret, now)
	if err != nil {
		return "", ErrTokenInvalid
	}
	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// IssueRefresh mints a signed refresh token for the given user ID and
// token identifier (jti).
func (s *Signer) IssueRefresh(userID, tokenID string, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.cfg.RefreshTTL)

	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   userID,
		ID:        tokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *Signer) VerifyRefresh(raw string, now time.Time) (RefreshClaims, error) {
	claims, err := s.parse(raw, s.cfg.RefreshSecret, now)
	if err != nil {
		return RefreshClaims{}, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.ID == "" {
		return RefreshClaims{}, ErrTokenInvalid
	}

	out := RefreshClaims{
		UserID:  claims.Subject,
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// parse verifies signature, issuer, and expiry against the given key.
// A fresh parser per call keeps the evaluation time explicit.
func (s *Signer) parse(raw string, key []byte, now time.Time) (*jwt.RegisteredClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	claims := &jwt.RegisteredClaims{}
	tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
