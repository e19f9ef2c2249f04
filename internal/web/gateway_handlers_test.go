package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/provision"
)

func TestGatewayPreflight(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/admin-create-user", "/admin-update-password", "/bootstrap-admin"} {
		r := httptest.NewRequest("OPTIONS", path, nil)
		w := httptest.NewRecorder()
		env.srv.ServeHTTP(w, r)

		if w.Code != http.StatusOK || w.Body.String() != "ok" {
			t.Errorf("%s preflight = %d %q", path, w.Code, w.Body.String())
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("%s allow origin = %q", path, got)
		}
	}

	r := httptest.NewRequest("OPTIONS", "/bootstrap-admin", nil)
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, r)
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "x-setup-token") {
		t.Errorf("bootstrap should allow the setup token header")
	}
}

func TestGatewayCreateUser(t *testing.T) {
	env := newTestEnv(t)
	req := provision.CreateUserRequest{Email: "new@example.com", Password: "new-pw-1", Role: "viewer"}

	w := apiRequest(t, env.srv, "POST", "/admin-create-user", env.tokens[account.RoleAdmin], req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	res := decodeBody[gatewayResult](t, w)
	if !res.Success || res.UserID == "" {
		t.Errorf("result = %+v", res)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}

	created, err := env.accounts.Get(context.Background(), res.UserID)
	if err != nil || created.Role != account.RoleViewer {
		t.Errorf("created = %+v, err = %v", created, err)
	}
}

func TestGatewayCreateUserRejections(t *testing.T) {
	env := newTestEnv(t)
	req := provision.CreateUserRequest{Email: "new@example.com", Password: "new-pw-1"}

	tests := []struct {
		name   string
		token  string
		header string
		body   any
		status int
		reason string
	}{
		{"no auth", "", "", req, http.StatusUnauthorized, provision.CodeMissingAuth},
		{"bad token", "garbage", "", req, http.StatusUnauthorized, provision.CodeUnauthorized},
		{"not bearer", "", "Basic abc", req, http.StatusUnauthorized, provision.CodeUnauthorized},
		{"non admin", env.tokens[account.RoleUser], "", req, http.StatusForbidden, provision.CodeForbidden},
		{"missing fields", env.tokens[account.RoleAdmin], "", provision.CreateUserRequest{Email: "x@example.com"}, http.StatusBadRequest, provision.CodeMissingFields},
		{"malformed body", env.tokens[account.RoleAdmin], "", []byte("{"), http.StatusBadRequest, provision.CodeMissingFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w *httptest.ResponseRecorder
			if tt.header != "" {
				r := httptest.NewRequest("POST", "/admin-create-user", strings.NewReader("{}"))
				r.Header.Set("Authorization", tt.header)
				w = httptest.NewRecorder()
				env.srv.ServeHTTP(w, r)
			} else {
				w = apiRequest(t, env.srv, "POST", "/admin-create-user", tt.token, tt.body)
			}
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if got := decodeBody[map[string]string](t, w)["error"]; got != tt.reason {
				t.Errorf("error = %q, want %q", got, tt.reason)
			}
		})
	}

	if _, ok := env.accounts.FindByUsername(context.Background(), "new@example.com"); ok {
		t.Error("rejected requests must not create accounts")
	}
}

func TestGatewayUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.agents[account.RoleViewer]

	body := provision.UpdatePasswordRequest{UserID: viewer.ID, NewPassword: "reset-pw"}
	w := apiRequest(t, env.srv, "POST", "/admin-update-password", env.tokens[account.RoleAdmin], body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	res := decodeBody[map[string]any](t, w)
	if res["success"] != true || res["user"] != viewer.ID {
		t.Errorf("body = %v, want success and user %s", res, viewer.ID)
	}
	if err := env.accounts.CheckPassword(context.Background(), viewer.ID, "reset-pw"); err != nil {
		t.Errorf("password not reset: %v", err)
	}
	if w := apiRequest(t, env.srv, "GET", "/api/visits", env.tokens[account.RoleViewer], nil); w.Code != http.StatusUnauthorized {
		t.Errorf("viewer token after reset = %d, want 401", w.Code)
	}

	w = apiRequest(t, env.srv, "POST", "/admin-update-password", env.tokens[account.RoleUser], body)
	if w.Code != http.StatusForbidden {
		t.Errorf("non-admin status = %d, want 403", w.Code)
	}
}

func TestGatewayBootstrapAdmin(t *testing.T) {
	env := newTestEnv(t)
	body := `{"email":"boss@example.com","password":"boss-pw"}`

	send := func(token string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("POST", "/bootstrap-admin", strings.NewReader(body))
		if token != "" {
			r.Header.Set("x-setup-token", token)
		}
		w := httptest.NewRecorder()
		env.srv.ServeHTTP(w, r)
		return w
	}

	if w := send("wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}
	if w := send(""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	w := send(testSetupToken)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	boss, ok := env.accounts.FindByUsername(context.Background(), "boss@example.com")
	if !ok || boss.Role != account.RoleAdmin {
		t.Errorf("boss = %+v, found = %v", boss, ok)
	}

	if w := send(testSetupToken); w.Code != http.StatusConflict {
		t.Errorf("repeat bootstrap status = %d, want 409", w.Code)
	}
}
