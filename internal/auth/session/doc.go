// Package session implements huddle's refresh-token session model.
//
// Every user has at most one active session: issuing a new refresh
// token revokes all prior ones (single-session policy). Refresh calls
// rotate the token: the presented record is revoked and a successor
// is issued inside one transactional boundary per jti, so concurrent
// refreshes of the same token produce exactly one winner. A revoked
// token presented again is reported internally as reuse (possible
// theft) while the caller sees the same generic rejection as for any
// unknown token.
//
// Raw signed tokens are never persisted; only their hash is stored
// (see internal/security/token).
package session
