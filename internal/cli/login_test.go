package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/evcraddock/visit-hub/internal/identity"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"valid", "clerk", "secret", false},
		{"empty username", "", "secret", true},
		{"blank username", "   ", "secret", true},
		{"empty password", "clerk", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCredentials(tt.username, tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCredentials(%q, %q) err = %v, wantErr = %v", tt.username, tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestLoginStoresSession(t *testing.T) {
	s := newTestServer(t)

	out := s.run(t, "login", "-u", "admin", "-p", "admin-pass")
	if !strings.Contains(out, "Signed in as admin (admin)") {
		t.Errorf("output = %q", out)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token == "" {
		t.Fatal("token not stored")
	}
	if cfg.ServerURL != s.url {
		t.Errorf("server_url = %q, want %q", cfg.ServerURL, s.url)
	}
	if cfg.Profile == nil || cfg.Profile.Role != "admin" || !cfg.Profile.Can("manage_accounts") {
		t.Errorf("profile = %+v", cfg.Profile)
	}
}

func TestLoginPromptsForPassword(t *testing.T) {
	s := newTestServer(t)

	root := NewRootCmd()
	var buf strings.Builder
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetIn(strings.NewReader("viewer-pass\n"))
	root.SetArgs([]string{"--server", s.url, "login", "-u", "viewer"})
	if err := root.Execute(); err != nil {
		t.Fatalf("login: %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "Password: ") || !strings.Contains(buf.String(), "Signed in as viewer") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestLoginWrongPasswordKeepsState(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "viewer")

	_, err := executeCommand("--server", s.url, "login", "-u", "admin", "-p", "wrong")
	if err == nil {
		t.Fatal("expected error for wrong password")
	}
	if !strings.Contains(err.Error(), "invalid username or password") {
		t.Errorf("err = %v", err)
	}

	cfg, _ := loadConfig()
	if cfg.Profile == nil || cfg.Profile.Username != "viewer" {
		t.Errorf("previous session lost: %+v", cfg.Profile)
	}
}

func TestWhoami(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "viewer")

	out := s.run(t, "whoami")
	if !strings.Contains(out, "Username:     viewer") || !strings.Contains(out, "Role:         viewer") {
		t.Errorf("output = %q", out)
	}

	out = s.run(t, "--format", "json", "whoami")
	var p identity.Profile
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if p.Username != "viewer" || p.Can("edit_visits") {
		t.Errorf("profile = %+v", p)
	}
}

func TestWhoamiNotSignedIn(t *testing.T) {
	s := newTestServer(t)
	_, err := executeCommand("--server", s.url, "whoami")
	if err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Errorf("err = %v, want not signed in", err)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "admin")

	cfg, _ := loadConfig()
	token := cfg.Token

	out := s.run(t, "logout")
	if !strings.Contains(out, "Logged out") {
		t.Errorf("output = %q", out)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token != "" || cfg.Profile != nil {
		t.Errorf("session not cleared: %+v", cfg)
	}
	if cfg.ServerURL != s.url {
		t.Errorf("server_url = %q, want preserved", cfg.ServerURL)
	}

	// The old token was revoked on the server too.
	t.Setenv("VH_TOKEN", token)
	if _, err := executeCommand("--server", s.url, "visits"); err == nil {
		t.Error("revoked token still accepted")
	}
}

func TestLogoutWhenNotLoggedIn(t *testing.T) {
	isolate(t)

	out, err := executeCommand("--server", "http://127.0.0.1:1", "logout")
	if err != nil {
		t.Fatalf("logout with no config: %v", err)
	}
	if !strings.Contains(out, "Not logged in.") {
		t.Errorf("output = %q", out)
	}
}

func TestLogoutServerUnreachable(t *testing.T) {
	isolate(t)
	if err := saveConfig(CLIConfig{Token: "tok", Profile: &identity.Profile{Username: "clerk"}}); err != nil {
		t.Fatal(err)
	}

	if _, err := executeCommand("--server", "http://127.0.0.1:1", "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	cfg, _ := loadConfig()
	if cfg.Token != "" {
		t.Error("local token should be cleared even when the server is down")
	}
}
