package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/auth"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	w := apiRequest(t, env.srv, "POST", "/api/auth/login", "", map[string]string{"username": "USER-agent", "password": "user-agent-pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[loginResponse](t, w)
	if resp.Token == "" || resp.User.Role != account.RoleUser {
		t.Errorf("resp = %+v", resp)
	}
	if !resp.Capabilities[auth.ActionEditVisits] || resp.Capabilities[auth.ActionManageAccounts] {
		t.Errorf("capabilities = %v", resp.Capabilities)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", cookie)
	}

	// The cookie alone authenticates.
	r := httptest.NewRequest("GET", "/api/auth/me", nil)
	r.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Errorf("cookie me status = %d", rec.Code)
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"unknown user", map[string]string{"username": "ghost", "password": "whatever"}, http.StatusUnauthorized},
		{"wrong password", map[string]string{"username": "user-agent", "password": "nope"}, http.StatusUnauthorized},
		{"missing fields", map[string]string{"username": "user-agent"}, http.StatusBadRequest},
		{"malformed", []byte("{"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, env.srv, "POST", "/api/auth/login", "", tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}

	// Unknown user and wrong password are indistinguishable.
	a := apiRequest(t, env.srv, "POST", "/api/auth/login", "", map[string]string{"username": "ghost", "password": "x"})
	b := apiRequest(t, env.srv, "POST", "/api/auth/login", "", map[string]string{"username": "user-agent", "password": "x"})
	if a.Body.String() != b.Body.String() {
		t.Errorf("bodies differ: %q vs %q", a.Body.String(), b.Body.String())
	}

	if w := apiRequest(t, env.srv, "GET", "/api/auth/login", "", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", w.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{"username": "user-agent", "password": "wrong"}

	var last int
	for i := 0; i < 11; i++ {
		last = apiRequest(t, env.srv, "POST", "/api/auth/login", "", body).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after repeated failures = %d, want 429", last)
	}

	// Even the right password is refused while blocked.
	w := apiRequest(t, env.srv, "POST", "/api/auth/login", "", map[string]string{"username": "user-agent", "password": "user-agent-pw"})
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	inactive := false
	if _, err := env.accounts.Update(t.Context(), env.agents[account.RoleViewer].ID, account.Patch{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	w := apiRequest(t, env.srv, "POST", "/api/auth/login", "", map[string]string{"username": "viewer-agent", "password": "viewer-agent-pw"})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	w := apiRequest(t, env.srv, "GET", "/api/auth/me", env.tokens[account.RoleViewer], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeBody[meResponse](t, w)
	if resp.User.Username != "viewer-agent" {
		t.Errorf("user = %+v", resp.User)
	}
	if !resp.Capabilities[auth.ActionView] || resp.Capabilities[auth.ActionEditVisits] {
		t.Errorf("capabilities = %v", resp.Capabilities)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokens[account.RoleUser]

	w := apiRequest(t, env.srv, "POST", "/api/auth/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if c := w.Header().Get("Set-Cookie"); !strings.Contains(c, auth.CookieName) {
		t.Errorf("expected cookie to be cleared, got %q", c)
	}

	if w := apiRequest(t, env.srv, "GET", "/api/visits", token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("token after logout status = %d, want 401", w.Code)
	}
	// Other sessions are untouched.
	if w := apiRequest(t, env.srv, "GET", "/api/visits", env.tokens[account.RoleAdmin], nil); w.Code != http.StatusOK {
		t.Errorf("admin status = %d", w.Code)
	}
}
