package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// TokenPair is the access/refresh credential pair returned on login,
// registration, and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Manager orchestrates the session lifecycle: issuing access/refresh pairs,
// persisting and rotating the backing session rows, and resolving verified
// claims back to user records.
//
// All state lives in the session store; the Manager itself is stateless and
// safe for concurrent use. Consistency across concurrent operations on the
// same session relies on the store's atomic single-row create/delete; no
// in-process locks are held.
type Manager struct {
	codec    *Codec
	sessions SessionRepository
	users    UserRepository
}

// NewManager creates a session manager.
func NewManager(codec *Codec, sessions SessionRepository, users UserRepository) *Manager {
	return &Manager{
		codec:    codec,
		sessions: sessions,
		users:    users,
	}
}

// Codec exposes the token codec for verification at the transport boundary.
func (m *Manager) Codec() *Codec {
	return m.codec
}

// Authenticate resolves an email/password pair to a user record. Unknown
// email and wrong password both surface ErrInvalidCredentials, so callers
// cannot be used to probe which addresses have accounts.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// IssueSession issues a fresh access/refresh pair for an already
// authenticated user. A new session row backs the refresh token; prior
// sessions are untouched, so a user may hold several concurrently (one per
// device).
func (m *Manager) IssueSession(ctx context.Context, user *User) (*TokenPair, error) {
	accessToken, err := m.codec.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(m.codec.RefreshTokenLifetime())
	session, err := m.sessions.Create(ctx, user.ID, expiresAt)
	if err != nil {
		return nil, err
	}

	refreshToken, err := m.codec.IssueRefreshToken(user, session.ID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh rotates a session: the old row is deleted, a new row and token
// pair are issued. The caller must have already verified the refresh
// token's signature and expiry; Refresh additionally requires that the
// embedded session row still exists, so a rotated or logged-out token is
// rejected even while its signature remains valid.
//
// The role on the new tokens is re-read from the user directory here, so a
// role change takes effect on the next refresh or login, never mid-window.
func (m *Manager) Refresh(ctx context.Context, claims *Claims) (*TokenPair, *User, error) {
	sessionID, err := parseClaimID(claims.SessionID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := m.sessions.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			// Row already rotated away or revoked: the token is dead.
			return nil, nil, fmt.Errorf("%w: session no longer active", ErrInvalidToken)
		}
		// A store failure is not an authentication verdict; let it
		// surface as a server error, not a rejected token.
		return nil, nil, fmt.Errorf("loading refresh session: %w", err)
	}

	userID, err := parseClaimID(claims.Subject)
	if err != nil {
		return nil, nil, err
	}

	// The user may have been deleted after the token was issued.
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	pair, err := m.IssueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	// Rotation: retire the consumed session. Idempotent: a concurrent
	// logout may have deleted it first.
	if err := m.sessions.DeleteByID(ctx, sessionID); err != nil {
		return nil, nil, err
	}

	return pair, user, nil
}

// EndSession revokes the refresh session with the given id. Idempotent:
// ending an already-ended session succeeds.
func (m *Manager) EndSession(ctx context.Context, sessionID int64) error {
	return m.sessions.DeleteByID(ctx, sessionID)
}

// Self resolves verified access token claims to the current user record.
// Fails with ErrUserNotFound when the subject was deleted after issuance.
func (m *Manager) Self(ctx context.Context, claims *Claims) (*User, error) {
	userID, err := parseClaimID(claims.Subject)
	if err != nil {
		return nil, err
	}
	return m.users.GetByID(ctx, userID)
}

// parseClaimID converts a string-form claim id into its integer value.
// Tokens are signed, so a malformed id means a codec bug or a forged
// payload; either way the token is invalid.
func parseClaimID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed id claim %q", ErrInvalidToken, s)
	}
	return id, nil
}
