// Package token provides refresh-token hashing primitives for huddle.
//
// It is the single source of truth for how refresh tokens are hashed
// before storage. The raw signed token is never persisted; only a
// 64-char hex digest is, so that database compromise alone cannot
// yield usable refresh tokens.
//
// Modes:
// - Default: SHA-256(token).
// - HMAC-SHA256(token, key) when HUDDLE_TOKEN_HMAC_KEY is set.
package token
