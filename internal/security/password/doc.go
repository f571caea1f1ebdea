// Package password provides password hashing and verification for huddle.
//
// It wraps bcrypt with a configurable cost and a password policy
// (length bounds). Hash strings are treated as untrusted input during
// Verify and malformed hashes are rejected with ErrInvalidHash rather
// than being reported as a mismatch.
package password
