package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/evcraddock/visit-hub/internal/account"
)

// userRequest is the body of account creation and update. Password is
// optional on update.
type userRequest struct {
	account.Patch
	Password string `json:"password,omitempty"`
}

// handleUsers serves /api/users. The route is registered admin only.
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		apiJSON(w, s.accounts.List(r.Context()), http.StatusOK)
	case http.MethodPost:
		s.apiAddUser(w, r)
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleUserRoute serves /api/users/{id}.
func (s *Server) handleUserRoute(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	if id == "" {
		s.handleUsers(w, r)
		return
	}
	if strings.Contains(id, "/") {
		apiError(w, "not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		a, err := s.accounts.Get(r.Context(), id)
		if err != nil {
			apiStoreError(w, r, err, "loading user")
			return
		}
		apiJSON(w, a, http.StatusOK)
	case http.MethodPut, http.MethodPatch:
		s.apiUpdateUser(w, r, id)
	case http.MethodDelete:
		s.apiDeleteUser(w, r, id)
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) apiAddUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := account.NewAgent{IsActive: req.IsActive}
	if req.Username != nil {
		in.Username = *req.Username
	}
	if req.Email != nil {
		in.Email = *req.Email
	}
	if req.FullName != nil {
		in.FullName = *req.FullName
	}
	if req.Role != nil {
		in.Role = *req.Role
	}

	a, err := s.accounts.Register(r.Context(), in, req.Password)
	if err != nil {
		apiStoreError(w, r, err, "adding user")
		return
	}
	apiJSON(w, a, http.StatusCreated)
}

func (s *Server) apiUpdateUser(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := s.accounts.Edit(ctx, id, req.Patch, req.Password)
	if err != nil {
		apiStoreError(w, r, err, "updating user")
		return
	}

	if !a.IsActive || req.Password != "" {
		s.revoke(r, id)
	}
	apiJSON(w, a, http.StatusOK)
}

func (s *Server) apiDeleteUser(w http.ResponseWriter, r *http.Request, id string) {
	removed, err := s.accounts.Delete(r.Context(), id)
	if err != nil {
		apiStoreError(w, r, err, "deleting user")
		return
	}
	if removed {
		s.revoke(r, id)
	}
	apiJSON(w, map[string]any{"id": id, "deleted": removed}, http.StatusOK)
}

// revoke ends the sessions of an account whose access changed.
func (s *Server) revoke(r *http.Request, id string) {
	if err := s.authn.Revoke(r.Context(), id); err != nil {
		slog.WarnContext(r.Context(), "revoking sessions", "account_id", id, "error", err)
	}
}
