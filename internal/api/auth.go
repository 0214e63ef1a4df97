package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stonegate-io/identity-core/internal/auth"
)

// minPasswordLength is the minimum accepted password length on register.
const minPasswordLength = 8

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// idResponse is the body returned by register, login, and refresh.
type idResponse struct {
	ID int64 `json:"id"`
}

// handleRegister creates a customer account and signs it in.
//
// Self-registration always yields the customer role; elevated roles are
// granted only through the admin user-management endpoints.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
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

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to register")
		return
	}

	user := &auth.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         auth.RoleCustomer,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email is already exists")
			return
		}
		s.logger.Error("create user failed", "error", err)
		writeInternalError(w, "failed to register")
		return
	}

	pair, err := s.sessions.IssueSession(r.Context(), user)
	if err != nil {
		s.logger.Error("issue session failed", "error", err, "user_id", user.ID)
		writeInternalError(w, "failed to register")
		return
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	s.setAuthCookies(w, pair)
	writeJSON(w, http.StatusCreated, idResponse{ID: user.ID})
}

// handleLogin verifies credentials and issues a session.
//
// Unknown email and wrong password produce the same response so the
// endpoint cannot be used to probe which addresses have accounts.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	user, err := s.sessions.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeUnauthorized(w, auth.ErrInvalidCredentials.Error())
			return
		}
		s.logger.Error("authenticate failed", "error", err)
		writeInternalError(w, "failed to login")
		return
	}

	pair, err := s.sessions.IssueSession(r.Context(), user)
	if err != nil {
		s.logger.Error("issue session failed", "error", err, "user_id", user.ID)
		writeInternalError(w, "failed to login")
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	s.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, idResponse{ID: user.ID})
}

// handleSelf returns the calling user's record.
func (s *Server) handleSelf(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	user, err := s.sessions.Self(r.Context(), claims)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("self lookup failed", "error", err)
		writeInternalError(w, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleRefresh rotates the caller's session and sets a fresh token pair.
//
// The middleware has already verified the refresh token's signature; the
// session manager rejects tokens whose backing row was rotated away or
// revoked, so a stolen-then-replayed token dies on first reuse.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	pair, user, err := s.sessions.Refresh(r.Context(), claims)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			writeUnauthorized(w, "invalid or expired refresh token")
		case errors.Is(err, auth.ErrUserNotFound):
			writeUnauthorized(w, "user no longer exists")
		default:
			s.logger.Error("refresh failed", "error", err)
			writeInternalError(w, "failed to refresh session")
		}
		return
	}

	s.logger.Info("session refreshed", "user_id", user.ID)
	s.setAuthCookies(w, pair)
	writeJSON(w, http.StatusCreated, idResponse{ID: user.ID})
}

// handleLogout revokes the caller's session and clears the auth cookies.
// Logging out twice is fine: revoking an already-revoked session succeeds.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	sessionID, err := claims.ParsedSessionID()
	if err != nil {
		writeUnauthorized(w, "invalid refresh token")
		return
	}

	if err := s.sessions.EndSession(r.Context(), sessionID); err != nil {
		s.logger.Error("end session failed", "error", err, "session_id", sessionID)
		writeInternalError(w, "failed to logout")
		return
	}

	s.clearAuthCookies(w)
	writeJSON(w, http.StatusOK, struct{}{})
}

// setAuthCookies sets the accessToken and refreshToken cookies.
//
// Both are HttpOnly and SameSite=Strict: scripts never see them and
// cross-site requests never send them. Lifetimes mirror the token TTLs.
func (s *Server) setAuthCookies(w http.ResponseWriter, pair *auth.TokenPair) {
	codec := s.sessions.Codec()

	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   s.cfg.CookieDomain,
		MaxAge:   int(codec.AccessTokenLifetime().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Domain:   s.cfg.CookieDomain,
		MaxAge:   int(codec.RefreshTokenLifetime().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookies expires both auth cookies.
func (s *Server) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   s.cfg.CookieDomain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.cfg.CookieSecure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
