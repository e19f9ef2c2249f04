package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/auth"
)

// loginResponse is returned by a successful sign-in.
type loginResponse struct {
	Token        string               `json:"token"`
	ExpiresAt    time.Time            `json:"expiresAt"`
	User         account.Agent        `json:"user"`
	Capabilities map[auth.Action]bool `json:"capabilities"`
}

// meResponse describes the current caller.
type meResponse struct {
	User         account.Agent        `json:"user"`
	Capabilities map[auth.Action]bool `json:"capabilities"`
}

// handleLogin checks credentials, sets the session cookie and returns a
// bearer token bound to the same session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ip := auth.ClientIP(r)
	if s.limiter.Blocked(ip) {
		apiError(w, "too many failed attempts, try again later", http.StatusTooManyRequests)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		apiError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	grant, err := s.authn.SignIn(r.Context(), req.Username, req.Password, r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrWrongPassword):
			s.limiter.RecordFailure(ip)
			slog.WarnContext(r.Context(), "failed sign-in", "ip", ip)
			// Same answer for both so usernames cannot be probed.
			apiError(w, "invalid username or password", http.StatusUnauthorized)
		case errors.Is(err, auth.ErrAccountDisabled):
			apiError(w, "account disabled", http.StatusForbidden)
		default:
			slog.ErrorContext(r.Context(), "sign-in", "error", err)
			apiError(w, "sign-in failed", http.StatusInternalServerError)
		}
		return
	}

	s.limiter.Reset(ip)
	s.authn.Sessions().SetCookie(w, grant.Session)
	apiJSON(w, loginResponse{
		Token:        grant.Token,
		ExpiresAt:    grant.Session.ExpiresAt,
		User:         grant.Agent,
		Capabilities: auth.Capabilities(grant.Agent.Role),
	}, http.StatusOK)
}

// handleLogout ends the caller's session. The cookie is cleared either way.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, _ := auth.ActorFrom(r.Context())
	if err := s.authn.SignOut(r.Context(), actor.SessionID); err != nil {
		slog.ErrorContext(r.Context(), "sign-out", "error", err)
	}
	s.authn.Sessions().ClearCookie(w)
	apiJSON(w, map[string]bool{"ok": true}, http.StatusOK)
}

// handleMe returns the caller's profile and what it may do.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, _ := auth.ActorFrom(r.Context())
	apiJSON(w, meResponse{User: actor.Agent, Capabilities: auth.Capabilities(actor.Agent.Role)}, http.StatusOK)
}
