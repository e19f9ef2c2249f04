package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/auth"
	"github.com/evcraddock/visit-hub/internal/db"
	"github.com/evcraddock/visit-hub/internal/provision"
	"github.com/evcraddock/visit-hub/internal/purpose"
	"github.com/evcraddock/visit-hub/internal/store"
	"github.com/evcraddock/visit-hub/internal/visit"
)

const testSetupToken = "setup-secret"

var fastHash = account.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type testEnv struct {
	srv      *Server
	accounts *account.Store
	visits   *visit.Repository
	purposes *purpose.Store
	tokens   map[account.Role]string
	agents   map[account.Role]account.Agent
}

// newTestEnv creates a server over a temp database with one signed-in
// account per role.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})

	ctx := context.Background()
	slot := store.NewSQLiteSlot(d)
	accounts := account.NewStore(slot, account.WithHashParams(fastHash))
	purposes := purpose.NewStore(slot)
	if err := purposes.EnsureDefaults(ctx); err != nil {
		t.Fatalf("seed purposes: %v", err)
	}
	authn := auth.NewAuthenticator(accounts, auth.NewSessionStore(d, auth.Config{}), auth.NewTokenIssuer([]byte("test-secret")))

	env := &testEnv{
		accounts: accounts,
		visits:   visit.NewRepository(slot),
		purposes: purposes,
		tokens:   map[account.Role]string{},
		agents:   map[account.Role]account.Agent{},
	}
	env.srv = NewServer(Deps{
		Visits:          env.visits,
		Purposes:        purposes,
		Accounts:        accounts,
		Auth:            authn,
		Provision:       provision.NewService(accounts, authn, testSetupToken),
		StorageCapacity: 1024 * 1024,
	})
	env.srv.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	for _, role := range account.ValidRoles {
		name := string(role) + "-agent"
		a, err := accounts.Register(ctx, account.NewAgent{Username: name, Role: role}, name+"-pw")
		if err != nil {
			t.Fatalf("register %s: %v", role, err)
		}
		grant, err := authn.SignIn(ctx, name, name+"-pw", "test")
		if err != nil {
			t.Fatalf("sign in %s: %v", role, err)
		}
		env.agents[role] = a
		env.tokens[role] = grant.Token
	}
	return env
}

func apiRequest(t *testing.T, srv http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case []byte:
			reqBody.Write(b)
		default:
			if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
				t.Fatalf("marshal body: %v", err)
			}
		}
	}

	r := httptest.NewRequest(method, path, &reqBody)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := apiRequest(t, env.srv, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decodeBody[map[string]string](t, w)["status"]; got != "ok" {
		t.Errorf("status = %q", got)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	paths := []string{"/api/visits", "/api/visits/stats", "/api/storage", "/api/purposes", "/api/users", "/api/auth/me"}
	for _, p := range paths {
		w := apiRequest(t, env.srv, "GET", p, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", p, w.Code)
		}
	}

	w := apiRequest(t, env.srv, "GET", "/api/visits", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", w.Code)
	}
}

func TestAPIPermissions(t *testing.T) {
	env := newTestEnv(t)
	newVisit := visit.Input{VisitorName: "A", Company: "B", Purpose: "Meeting", Date: "2026-03-09", StartTime: "09:00"}

	tests := []struct {
		name   string
		role   account.Role
		method string
		path   string
		body   any
		status int
	}{
		{"viewer lists", account.RoleViewer, "GET", "/api/visits", nil, http.StatusOK},
		{"viewer cannot add", account.RoleViewer, "POST", "/api/visits", newVisit, http.StatusForbidden},
		{"user adds", account.RoleUser, "POST", "/api/visits", newVisit, http.StatusCreated},
		{"user cannot clear", account.RoleUser, "DELETE", "/api/visits", nil, http.StatusForbidden},
		{"user cannot import", account.RoleUser, "POST", "/api/visits/import", []byte("[]"), http.StatusForbidden},
		{"user cannot add purpose", account.RoleUser, "POST", "/api/purposes", map[string]string{"name": "Audit"}, http.StatusForbidden},
		{"user cannot list users", account.RoleUser, "GET", "/api/users", nil, http.StatusForbidden},
		{"user cannot edit a user", account.RoleUser, "PUT", "/api/users/anyone", map[string]string{"fullName": "X"}, http.StatusForbidden},
		{"viewer cannot delete a user", account.RoleViewer, "DELETE", "/api/users/anyone", nil, http.StatusForbidden},
		{"viewer reads storage", account.RoleViewer, "GET", "/api/storage", nil, http.StatusOK},
		{"admin clears", account.RoleAdmin, "DELETE", "/api/visits", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, env.srv, tt.method, tt.path, env.tokens[tt.role], tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestAPIUserRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	w := apiRequest(t, env.srv, "GET", "/api/users", env.tokens[account.RoleViewer], nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if got := decodeBody[map[string]string](t, w)["error"]; got != "forbidden" {
		t.Errorf("error = %q, want forbidden", got)
	}

	w = apiRequest(t, env.srv, "GET", "/api/users", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", w.Code)
	}
}

func TestAPIErrorBodies(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokens[account.RoleAdmin]

	w := apiRequest(t, env.srv, "POST", "/api/visits", token, []byte("{not json"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed status = %d", w.Code)
	}
	if got := decodeBody[map[string]string](t, w)["error"]; got != "invalid JSON body" {
		t.Errorf("error = %q", got)
	}

	w = apiRequest(t, env.srv, "PATCH", "/api/visits", token, nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("method status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}
