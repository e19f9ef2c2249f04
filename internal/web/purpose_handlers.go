package web

import (
	"net/http"

	"github.com/evcraddock/visit-hub/internal/auth"
)

// handlePurposes serves the purpose vocabulary at /api/purposes.
func (s *Server) handlePurposes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == http.MethodGet {
		if permit(w, r, auth.ActionView) {
			apiJSON(w, s.purposes.List(ctx), http.StatusOK)
		}
		return
	}
	if !permit(w, r, auth.ActionManagePurposes) {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if _, err := s.purposes.Add(ctx, req.Name); err != nil {
			apiStoreError(w, r, err, "adding purpose")
			return
		}
		apiJSON(w, s.purposes.List(ctx), http.StatusCreated)
	case http.MethodPut:
		var req struct {
			Old string `json:"old"`
			New string `json:"new"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if _, err := s.purposes.Rename(ctx, req.Old, req.New); err != nil {
			apiStoreError(w, r, err, "renaming purpose")
			return
		}
		apiJSON(w, s.purposes.List(ctx), http.StatusOK)
	case http.MethodDelete:
		name := r.URL.Query().Get("name")
		if name == "" {
			apiError(w, "name is required", http.StatusBadRequest)
			return
		}
		if err := s.purposes.Remove(ctx, name); err != nil {
			apiStoreError(w, r, err, "removing purpose")
			return
		}
		apiJSON(w, s.purposes.List(ctx), http.StatusOK)
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
