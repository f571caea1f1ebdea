package session

import "errors"

// Internal distinctions below all surface to clients as the same 401;
// they exist for audit logging and alerting only.
var (
	// ErrTokenInvalid is returned when the refresh token fails
	// signature or format verification.
	ErrTokenInvalid = errors.New("invalid refresh token")

	// ErrSessionNotFound is returned when the token's jti matches no record.
	ErrSessionNotFound = errors.New("session not found")

	// ErrReuseDetected is returned when a rotated-away (revoked) refresh
	// token is presented again. This signals possible token theft.
	ErrReuseDetected = errors.New("refresh token reuse detected")

	// ErrTokenMismatch is returned when the presented token's hash does
	// not match the stored hash for its jti.
	ErrTokenMismatch = errors.New("refresh token hash mismatch")

	// ErrSessionExpired is returned when the stored record is past expiry.
	ErrSessionExpired = errors.New("session expired")
)
