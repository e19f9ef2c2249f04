package web

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/evcraddock/visit-hub/internal/auth"
	"github.com/evcraddock/visit-hub/internal/visit"
)

// handleVisits serves /api/visits: list/search, add and clear.
func (s *Server) handleVisits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !permit(w, r, auth.ActionView) {
			return
		}
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		apiJSON(w, s.visits.Search(r.Context(), q), http.StatusOK)
	case http.MethodPost:
		if !permit(w, r, auth.ActionEditVisits) {
			return
		}
		s.apiAddVisit(w, r)
	case http.MethodDelete:
		if !permit(w, r, auth.ActionManageData) {
			return
		}
		if err := s.visits.Clear(r.Context()); err != nil {
			apiStoreError(w, r, err, "clearing visits")
			return
		}
		apiJSON(w, map[string]bool{"cleared": true}, http.StatusOK)
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleVisitRoute routes /api/visits/{id} and the collection views under it.
func (s *Server) handleVisitRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/visits/")
	path = strings.TrimSuffix(path, "/")

	switch path {
	case "":
		s.handleVisits(w, r)
		return
	case "stats":
		if r.Method != http.MethodGet {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if permit(w, r, auth.ActionView) {
			apiJSON(w, s.visits.Stats(r.Context(), s.now()), http.StatusOK)
		}
		return
	case "export":
		if r.Method != http.MethodGet {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if permit(w, r, auth.ActionView) {
			s.apiExportVisits(w, r)
		}
		return
	case "import":
		if r.Method != http.MethodPost {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if permit(w, r, auth.ActionManageData) {
			s.apiImportVisits(w, r)
		}
		return
	}

	if strings.Contains(path, "/") {
		apiError(w, "not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !permit(w, r, auth.ActionView) {
			return
		}
		v, err := s.visits.Get(r.Context(), path)
		if err != nil {
			apiStoreError(w, r, err, "loading visit")
			return
		}
		apiJSON(w, v, http.StatusOK)
	case http.MethodPut, http.MethodPatch:
		if !permit(w, r, auth.ActionEditVisits) {
			return
		}
		var p visit.Patch
		if !decodeJSON(w, r, &p) {
			return
		}
		v, err := s.visits.Update(r.Context(), path, p)
		if err != nil {
			apiStoreError(w, r, err, "updating visit")
			return
		}
		apiJSON(w, v, http.StatusOK)
	case http.MethodDelete:
		if !permit(w, r, auth.ActionEditVisits) {
			return
		}
		removed, err := s.visits.Delete(r.Context(), path)
		if err != nil {
			apiStoreError(w, r, err, "deleting visit")
			return
		}
		apiJSON(w, map[string]any{"id": path, "deleted": removed}, http.StatusOK)
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) apiAddVisit(w http.ResponseWriter, r *http.Request) {
	var in visit.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	v, err := s.visits.Add(r.Context(), in)
	if err != nil {
		apiStoreError(w, r, err, "adding visit")
		return
	}
	apiJSON(w, v, http.StatusCreated)
}

// apiExportVisits streams the visit log as CSV, JSON or XLSX.
func (s *Server) apiExportVisits(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	locale := visit.ParseLocale(r.URL.Query().Get("lang"))
	visits := s.visits.List(r.Context())

	var (
		buf         bytes.Buffer
		contentType string
		err         error
	)
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = visit.WriteCSV(&buf, visits, locale)
	case "json":
		contentType = "application/json"
		var data []byte
		data, err = visit.ExportJSON(visits)
		buf.Write(data)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = visit.WriteXLSX(&buf, visits, locale)
	default:
		apiError(w, "format must be csv, json or xlsx", http.StatusBadRequest)
		return
	}
	if err != nil {
		apiStoreError(w, r, err, "exporting visits")
		return
	}

	filename := fmt.Sprintf("visits-%s.%s", s.now().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// apiImportVisits replaces the visit log with a JSON array.
func (s *Server) apiImportVisits(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		apiError(w, "reading body", http.StatusBadRequest)
		return
	}
	n, err := s.visits.Import(r.Context(), data)
	if err != nil {
		apiStoreError(w, r, err, "importing visits")
		return
	}
	apiJSON(w, map[string]int{"imported": n}, http.StatusOK)
}

// handleStorage reports the visit log's share of its storage capacity.
func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	info, err := s.visits.StorageInfo(r.Context(), s.capacity)
	if err != nil {
		apiStoreError(w, r, err, "reading storage")
		return
	}
	apiJSON(w, info, http.StatusOK)
}
