// Package identity manages user records for huddle.
//
// It owns the users table: registration with unique usernames,
// credential lookup for login, and password updates. Password hashing
// itself lives in internal/security/password; this package only ever
// sees hashes.
package identity
