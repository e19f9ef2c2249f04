package web

import (
	"net/http"
	"net/url"
	"reflect"
	"testing"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/purpose"
)

func TestAPIPurposes(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokens[account.RoleAdmin]

	w := apiRequest(t, env.srv, "GET", "/api/purposes", env.tokens[account.RoleViewer], nil)
	if got := decodeBody[[]string](t, w); !reflect.DeepEqual(got, purpose.Defaults) {
		t.Fatalf("purposes = %v, want defaults", got)
	}

	w = apiRequest(t, env.srv, "POST", "/api/purposes", admin, map[string]string{"name": "  Audit "})
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d; body: %s", w.Code, w.Body.String())
	}
	got := decodeBody[[]string](t, w)
	if got[len(got)-1] != "Audit" {
		t.Errorf("purposes = %v", got)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"duplicate", "POST", "/api/purposes", map[string]string{"name": "Audit"}, http.StatusConflict},
		{"empty", "POST", "/api/purposes", map[string]string{"name": "  "}, http.StatusBadRequest},
		{"rename", "PUT", "/api/purposes", map[string]string{"old": "Audit", "new": "Inspection"}, http.StatusOK},
		{"rename unknown", "PUT", "/api/purposes", map[string]string{"old": "Audit", "new": "X"}, http.StatusNotFound},
		{"rename onto existing", "PUT", "/api/purposes", map[string]string{"old": "Inspection", "new": "Meeting"}, http.StatusConflict},
		{"remove", "DELETE", "/api/purposes?name=" + url.QueryEscape("Inspection"), nil, http.StatusOK},
		{"remove unknown", "DELETE", "/api/purposes?name=Inspection", nil, http.StatusNotFound},
		{"remove without name", "DELETE", "/api/purposes", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, env.srv, tt.method, tt.path, admin, tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.status, w.Body.String())
			}
		})
	}

	w = apiRequest(t, env.srv, "GET", "/api/purposes", admin, nil)
	if got := decodeBody[[]string](t, w); !reflect.DeepEqual(got, purpose.Defaults) {
		t.Errorf("purposes = %v, want defaults after remove", got)
	}
}
