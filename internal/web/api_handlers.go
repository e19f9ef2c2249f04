package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/purpose"
	"github.com/evcraddock/visit-hub/internal/store"
	"github.com/evcraddock/visit-hub/internal/visit"
)

// maxBodySize bounds JSON request bodies, including imports.
const maxBodySize = 10 << 20

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// decodeJSON reads a JSON request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(dst); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

type fieldsError struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// apiStoreError maps a domain error to a status code. what names the
// operation in the log and in 500 responses.
func apiStoreError(w http.ResponseWriter, r *http.Request, err error, what string) {
	var (
		visitErr   *visit.ValidationError
		accountErr *account.ValidationError
	)
	switch {
	case errors.As(err, &visitErr):
		apiJSON(w, fieldsError{Error: visitErr.Error(), Fields: visitErr.Fields}, http.StatusBadRequest)
	case errors.As(err, &accountErr):
		apiJSON(w, fieldsError{Error: accountErr.Error(), Fields: accountErr.Fields}, http.StatusBadRequest)
	case errors.Is(err, visit.ErrInvalidImport), errors.Is(err, purpose.ErrEmpty):
		apiError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, purpose.ErrNotFound):
		apiError(w, "not found", http.StatusNotFound)
	case errors.Is(err, account.ErrDuplicate),
		errors.Is(err, purpose.ErrDuplicate),
		errors.Is(err, account.ErrLastAdmin):
		apiError(w, err.Error(), http.StatusConflict)
	default:
		slog.ErrorContext(r.Context(), what, "error", err)
		apiError(w, what+" failed", http.StatusInternalServerError)
	}
}
