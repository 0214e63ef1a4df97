// Package api implements the HTTP REST API for Identity Core.
//
// This package provides:
//   - Authentication endpoints (register, login, refresh, logout, self)
//   - Admin endpoints for user and tenant management
//   - JWKS publication for external access-token verifiers
//   - Middleware stack (request ID, logging, recovery, CORS, auth)
//
// # Architecture
//
// The API server is the only transport in front of the auth and tenant
// domains. Access tokens travel as an HttpOnly cookie or a Bearer header;
// refresh tokens travel only as an HttpOnly cookie. Token verification
// happens in middleware, role checks happen per route group, and handlers
// deal purely in domain types.
//
// # Security
//
// Access tokens are RS256-signed and verifiable offline against the JWKS
// endpoint. Refresh tokens are HS256-signed and additionally bound to a
// persisted session row, so logout and rotation revoke them immediately
// regardless of their cryptographic validity.
package api
