package web

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/evcraddock/visit-hub/internal/account"
)

func TestAPIListUsers(t *testing.T) {
	env := newTestEnv(t)

	w := apiRequest(t, env.srv, "GET", "/api/users", env.tokens[account.RoleAdmin], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decodeBody[[]account.Agent](t, w); len(got) != 3 {
		t.Errorf("got %d users, want 3", len(got))
	}
	if body := w.Body.String(); containsAny(body, "argon2", "password") {
		t.Errorf("user list leaks credentials: %s", body)
	}
}

func TestAPIAddUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokens[account.RoleAdmin]

	body := map[string]any{"username": "clerk", "fullName": "Front Desk", "role": "viewer", "password": "clerk-pw"}
	w := apiRequest(t, env.srv, "POST", "/api/users", admin, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	created := decodeBody[account.Agent](t, w)
	if created.Role != account.RoleViewer || !created.IsActive {
		t.Errorf("created = %+v", created)
	}

	w = apiRequest(t, env.srv, "POST", "/api/auth/login", "", map[string]string{"username": "clerk", "password": "clerk-pw"})
	if w.Code != http.StatusOK {
		t.Errorf("new user login status = %d", w.Code)
	}

	w = apiRequest(t, env.srv, "POST", "/api/users", admin, body)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", w.Code)
	}

	w = apiRequest(t, env.srv, "POST", "/api/users", admin, map[string]any{"username": "short", "password": "123"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("short password status = %d, want 400", w.Code)
	}
}

func TestAPIUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokens[account.RoleAdmin]
	user := env.agents[account.RoleUser]

	w := apiRequest(t, env.srv, "PUT", "/api/users/"+user.ID, admin, map[string]any{"fullName": "Renamed"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if got := decodeBody[account.Agent](t, w); got.FullName != "Renamed" || got.Role != account.RoleUser {
		t.Errorf("updated = %+v", got)
	}

	// The user's token still works after a profile edit.
	if w := apiRequest(t, env.srv, "GET", "/api/auth/me", env.tokens[account.RoleUser], nil); w.Code != http.StatusOK {
		t.Errorf("me status = %d", w.Code)
	}

	// Deactivation ends the user's sessions.
	w = apiRequest(t, env.srv, "PUT", "/api/users/"+user.ID, admin, map[string]any{"isActive": false})
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d", w.Code)
	}
	if w := apiRequest(t, env.srv, "GET", "/api/auth/me", env.tokens[account.RoleUser], nil); w.Code != http.StatusUnauthorized {
		t.Errorf("deactivated token status = %d, want 401", w.Code)
	}

	if w := apiRequest(t, env.srv, "PUT", "/api/users/missing", admin, map[string]any{"fullName": "X"}); w.Code != http.StatusNotFound {
		t.Errorf("missing user status = %d, want 404", w.Code)
	}
}

func TestAPIUserPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.agents[account.RoleViewer]

	w := apiRequest(t, env.srv, "PUT", "/api/users/"+viewer.ID, env.tokens[account.RoleAdmin], map[string]any{"password": "fresh-pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if err := env.accounts.CheckPassword(context.Background(), viewer.ID, "fresh-pw"); err != nil {
		t.Errorf("password not changed: %v", err)
	}
	if w := apiRequest(t, env.srv, "GET", "/api/visits", env.tokens[account.RoleViewer], nil); w.Code != http.StatusUnauthorized {
		t.Errorf("old token status = %d, want 401", w.Code)
	}
}

func TestAPIUpdateUserShortPasswordKeepsProfile(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.agents[account.RoleViewer]

	body := map[string]any{"fullName": "Changed Name", "password": "123"}
	w := apiRequest(t, env.srv, "PUT", "/api/users/"+viewer.ID, env.tokens[account.RoleAdmin], body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
	}

	ctx := context.Background()
	got, err := env.accounts.Get(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FullName != viewer.FullName {
		t.Errorf("fullName = %q, want %q unchanged", got.FullName, viewer.FullName)
	}
	if err := env.accounts.CheckPassword(ctx, viewer.ID, "viewer-agent-pw"); err != nil {
		t.Errorf("old password should still work: %v", err)
	}
	if w := apiRequest(t, env.srv, "GET", "/api/visits", env.tokens[account.RoleViewer], nil); w.Code != http.StatusOK {
		t.Errorf("viewer token after rejected edit = %d, want 200", w.Code)
	}
}

func TestAPILastAdminProtected(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.tokens[account.RoleAdmin]
	admin := env.agents[account.RoleAdmin]

	w := apiRequest(t, env.srv, "PUT", "/api/users/"+admin.ID, adminToken, map[string]any{"role": "viewer"})
	if w.Code != http.StatusConflict {
		t.Errorf("demote status = %d, want 409", w.Code)
	}
	w = apiRequest(t, env.srv, "DELETE", "/api/users/"+admin.ID, adminToken, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("delete status = %d, want 409", w.Code)
	}
	if got := env.accounts.CountActiveAdmins(context.Background()); got != 1 {
		t.Errorf("active admins = %d, want 1", got)
	}
}

func TestAPIDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.agents[account.RoleUser]

	w := apiRequest(t, env.srv, "DELETE", "/api/users/"+user.ID, env.tokens[account.RoleAdmin], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if _, ok := env.accounts.FindByUsername(context.Background(), user.Username); ok {
		t.Error("user should be gone")
	}
	if w := apiRequest(t, env.srv, "GET", "/api/visits", env.tokens[account.RoleUser], nil); w.Code != http.StatusUnauthorized {
		t.Errorf("deleted user's token status = %d, want 401", w.Code)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
