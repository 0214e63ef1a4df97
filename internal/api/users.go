package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stonegate-io/identity-core/internal/auth"
	"github.com/stonegate-io/identity-core/internal/tenant"
)

type createUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	TenantID  *int64 `json:"tenant_id,omitempty"`
}

type updateUserRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Role      *string `json:"role,omitempty"`
	TenantID  *int64  `json:"tenant_id,omitempty"`
}

// handleListUsers returns all user accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleCreateUser creates a user with an explicit role and optional tenant
// association. Unlike self-registration, any role in the closed set is
// allowed here because the route is already gated to admins.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		writeBadRequest(w, "first_name, last_name, email, and password are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	if req.Role == "" {
		req.Role = string(auth.RoleCustomer)
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeBadRequest(w, "invalid role: must be admin, manager, or customer")
		return
	}

	if req.TenantID != nil {
		if _, err := s.tenants.GetByID(r.Context(), *req.TenantID); err != nil {
			if errors.Is(err, tenant.ErrNotFound) {
				writeBadRequest(w, "tenant does not exist")
				return
			}
			s.logger.Error("get tenant for user create failed", "error", err)
			writeInternalError(w, "failed to create user")
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	user := &auth.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		TenantID:     req.TenantID,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email is already exists")
			return
		}
		s.logger.Error("create user failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	claims := claimsFromContext(r.Context())
	s.logger.Info("user created", "user_id", user.ID, "role", user.Role, "created_by", claims.Subject)

	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user failed", "error", err)
		writeInternalError(w, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser modifies a user's mutable fields.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}
	claims := claimsFromContext(r.Context())

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user for update failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	// Self-protection: an admin cannot demote their own account.
	if req.Role != nil && strconv.FormatInt(id, 10) == claims.Subject && *req.Role != string(user.Role) {
		writeForbidden(w, "cannot change your own role")
		return
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Role != nil {
		role, err := auth.ParseRole(*req.Role)
		if err != nil {
			writeBadRequest(w, "invalid role: must be admin, manager, or customer")
			return
		}
		user.Role = role
	}
	if req.TenantID != nil {
		if _, err := s.tenants.GetByID(r.Context(), *req.TenantID); err != nil {
			if errors.Is(err, tenant.ErrNotFound) {
				writeBadRequest(w, "tenant does not exist")
				return
			}
			s.logger.Error("get tenant for user update failed", "error", err)
			writeInternalError(w, "failed to update user")
			return
		}
		user.TenantID = req.TenantID
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		s.logger.Error("update user failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	s.logger.Info("user updated", "user_id", id, "updated_by", claims.Subject)
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes a user account. The schema cascades the user's
// refresh sessions, so deletion also signs them out everywhere.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}
	claims := claimsFromContext(r.Context())

	// Cannot delete yourself
	if strconv.FormatInt(id, 10) == claims.Subject {
		writeForbidden(w, "cannot delete your own account")
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("delete user failed", "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	s.logger.Info("user deleted", "user_id", id, "deleted_by", claims.Subject)
	w.WriteHeader(http.StatusNoContent)
}

// idParam parses the {id} URL parameter as an integer row id.
func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
