package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stonegate-io/identity-core/internal/tenant"
)

// Field length limits for tenant records.
const (
	maxTenantNameLength    = 100
	maxTenantAddressLength = 255
)

type createTenantRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type updateTenantRequest struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
}

// handleListTenants returns all tenants.
func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.tenants.List(r.Context())
	if err != nil {
		s.logger.Error("list tenants failed", "error", err)
		writeInternalError(w, "failed to list tenants")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tenants": tenants,
		"count":   len(tenants),
	})
}

// handleCreateTenant creates a new tenant.
func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if msg := validateTenantFields(req.Name, req.Address); msg != "" {
		writeBadRequest(w, msg)
		return
	}

	t := &tenant.Tenant{Name: req.Name, Address: req.Address}
	if err := s.tenants.Create(r.Context(), t); err != nil {
		s.logger.Error("create tenant failed", "error", err)
		writeInternalError(w, "failed to create tenant")
		return
	}

	claims := claimsFromContext(r.Context())
	s.logger.Info("tenant created", "tenant_id", t.ID, "created_by", claims.Subject)

	writeJSON(w, http.StatusCreated, t)
}

// handleGetTenant returns a single tenant by ID.
func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "invalid tenant id")
		return
	}

	t, err := s.tenants.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeNotFound(w, "tenant not found")
			return
		}
		s.logger.Error("get tenant failed", "error", err)
		writeInternalError(w, "failed to get tenant")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTenant modifies a tenant's name and address.
func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "invalid tenant id")
		return
	}

	var req updateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	t, err := s.tenants.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeNotFound(w, "tenant not found")
			return
		}
		s.logger.Error("get tenant for update failed", "error", err)
		writeInternalError(w, "failed to update tenant")
		return
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Address != nil {
		t.Address = *req.Address
	}
	if msg := validateTenantFields(t.Name, t.Address); msg != "" {
		writeBadRequest(w, msg)
		return
	}

	if err := s.tenants.Update(r.Context(), t); err != nil {
		s.logger.Error("update tenant failed", "error", err)
		writeInternalError(w, "failed to update tenant")
		return
	}

	claims := claimsFromContext(r.Context())
	s.logger.Info("tenant updated", "tenant_id", id, "updated_by", claims.Subject)

	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTenant removes a tenant. Users attached to it are detached
// (tenant_id set to NULL by the schema), never deleted.
func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "invalid tenant id")
		return
	}

	if err := s.tenants.Delete(r.Context(), id); err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeNotFound(w, "tenant not found")
			return
		}
		s.logger.Error("delete tenant failed", "error", err)
		writeInternalError(w, "failed to delete tenant")
		return
	}

	claims := claimsFromContext(r.Context())
	s.logger.Info("tenant deleted", "tenant_id", id, "deleted_by", claims.Subject)

	w.WriteHeader(http.StatusNoContent)
}

// validateTenantFields returns a validation message, or "" when valid.
func validateTenantFields(name, address string) string {
	switch {
	case name == "":
		return "name is required"
	case len(name) > maxTenantNameLength:
		return "name must be at most 100 characters"
	case address == "":
		return "address is required"
	case len(address) > maxTenantAddressLength:
		return "address must be at most 255 characters"
	}
	return ""
}
