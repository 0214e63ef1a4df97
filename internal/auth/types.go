package auth

import (
	"errors"
	"fmt"
	"time"
)

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleAdmin manages tenants and user accounts across the system.
	RoleAdmin Role = "admin"

	// RoleManager operates within a single tenant.
	RoleManager Role = "manager"

	// RoleCustomer is the default role assigned on self-registration.
	RoleCustomer Role = "customer"
)

// ValidRoles is the closed set of roles a user account may hold.
var ValidRoles = []Role{RoleAdmin, RoleManager, RoleCustomer}

// IsValidRole returns true if the role is a member of the closed role set.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// ParseRole converts a wire-format role string into a Role.
// Unknown values are rejected at the boundary rather than passed through.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !IsValidRole(r) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// User represents an account in the directory.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	TenantID     *int64    `json:"tenant_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshSession is the persisted record backing a refresh token.
// Rows are immutable: rotation creates a new row and deletes the old one,
// never updates in place.
type RefreshSession struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sentinel errors for auth operations.
var (
	// ErrInvalidCredentials deliberately covers both unknown email and wrong
	// password so the response does not leak which field failed.
	ErrInvalidCredentials = errors.New("email or password not match")

	ErrInvalidToken    = errors.New("invalid token")
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("refresh session not found")
	ErrEmailExists     = errors.New("email is already exists")
	ErrUnknownRole     = errors.New("unknown role")
	ErrForbidden       = errors.New("insufficient permissions")
)
