// Package auth implements the authentication and session core of Identity
// Core: token issuance and verification, refresh session persistence and
// rotation, password hashing, and role-based access decisions.
//
// # Token model
//
// Access tokens are RS256-signed JWTs carrying the subject id and role.
// Any holder of the public key (served at /.well-known/jwks.json) can verify
// them without a round trip to this service or its database. They live for
// one hour.
//
// Refresh tokens are HS256-signed JWTs verified only by this service. Each
// one is bound to a refresh_sessions row via its "id" claim; the row's
// existence is the source of truth for revocation. Refresh tokens live for
// one year, matching their backing row.
//
// # Rotation
//
// Every successful refresh creates a new session row and deletes the old
// one. A refresh token whose row has been deleted (rotated away or logged
// out) is rejected even though its signature remains valid until natural
// expiry.
//
// # Roles
//
// Role is a closed set (admin, manager, customer). Unknown role strings are
// rejected at the boundary rather than passed through.
package auth
