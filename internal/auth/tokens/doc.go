// Package tokens issues and verifies huddle's signed tokens.
//
// Two token classes exist, signed with two independent HS256 keys so
// that compromise of one key cannot forge the other class:
//
//   - Access tokens: short-lived, stateless, subject = username.
//   - Refresh tokens: long-lived, subject = user ID, carry a unique
//     identifier (jti) used as the server-side lookup key for
//     rotation and revocation.
//
// All verification failures (malformed, bad signature, expired)
// collapse to ErrTokenInvalid; callers never learn which check failed.
package tokens
