package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stonegate-io/identity-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Liveness and key publication (no auth required)
	r.Get("/healthz", s.handleHealth)
	r.Get("/.well-known/jwks.json", s.handleJWKS)

	// Auth endpoints
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		// Refresh and logout authenticate with the refresh cookie, not the
		// access token, so they keep working after the access token expires.
		r.Group(func(r chi.Router) {
			r.Use(s.refreshAuthMiddleware)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticateMiddleware)
			r.Get("/self", s.handleSelf)
		})
	})

	// Admin-only management endpoints
	r.Group(func(r chi.Router) {
		r.Use(s.authenticateMiddleware)
		r.Use(s.requireRole(auth.RoleAdmin))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetUser)
				r.Patch("/", s.handleUpdateUser)
				r.Delete("/", s.handleDeleteUser)
			})
		})

		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", s.handleListTenants)
			r.Post("/", s.handleCreateTenant)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTenant)
				r.Patch("/", s.handleUpdateTenant)
				r.Delete("/", s.handleDeleteTenant)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleJWKS publishes the access-token verification keys. External
// services verify RS256 access tokens against this document without
// calling back into Identity Core per request.
func (s *Server) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Codec().JWKS())
}
