// Package web provides the visit-hub HTTP API.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/auth"
	"github.com/evcraddock/visit-hub/internal/logging"
	"github.com/evcraddock/visit-hub/internal/provision"
	"github.com/evcraddock/visit-hub/internal/purpose"
	"github.com/evcraddock/visit-hub/internal/visit"
)

// Deps are the services the server exposes.
type Deps struct {
	Visits          *visit.Repository
	Purposes        *purpose.Store
	Accounts        *account.Store
	Auth            *auth.Authenticator
	Provision       *provision.Service
	StorageCapacity int64
}

// Server is the HTTP API server.
type Server struct {
	visits    *visit.Repository
	purposes  *purpose.Store
	accounts  *account.Store
	authn     *auth.Authenticator
	provision *provision.Service
	capacity  int64
	limiter   *auth.RateLimiter
	now       func() time.Time
	mux       *http.ServeMux
	handler   http.Handler
}

// NewServer creates a server and registers its routes.
func NewServer(d Deps) *Server {
	s := &Server{
		visits:    d.Visits,
		purposes:  d.Purposes,
		accounts:  d.Accounts,
		authn:     d.Auth,
		provision: d.Provision,
		capacity:  d.StorageCapacity,
		limiter:   auth.NewRateLimiter(),
		now:       time.Now,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.Handle("/api/auth/logout", s.protect(s.handleLogout))
	s.mux.Handle("/api/auth/me", s.protect(s.handleMe))

	s.mux.Handle("/api/visits", s.protect(s.handleVisits))
	s.mux.Handle("/api/visits/", s.protect(s.handleVisitRoute))
	s.mux.Handle("/api/storage", s.protectFor(auth.ActionView, s.handleStorage))
	s.mux.Handle("/api/purposes", s.protect(s.handlePurposes))
	s.mux.Handle("/api/users", s.protectFor(auth.ActionManageAccounts, s.handleUsers))
	s.mux.Handle("/api/users/", s.protectFor(auth.ActionManageAccounts, s.handleUserRoute))

	// Provisioning gateway: browser-callable from any origin.
	s.mux.Handle("/admin-create-user", cors(corsHeaders, s.handleAdminCreateUser))
	s.mux.Handle("/admin-update-password", cors(corsHeaders, s.handleAdminUpdatePassword))
	s.mux.Handle("/bootstrap-admin", cors(corsHeaders+", "+setupTokenHeader, s.handleBootstrapAdmin))

	s.handler = logging.RequestLogger(s.mux)
	return s
}

// protect requires an authenticated, active caller.
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return auth.RequireActor(s.authn, h)
}

// protectFor requires an authenticated caller allowed to perform action on
// every method of the route.
func (s *Server) protectFor(action auth.Action, h http.HandlerFunc) http.Handler {
	return auth.RequireActor(s.authn, auth.Require(action, h))
}

// permit reports whether the request's actor may perform action, writing a
// 403 when it may not.
func permit(w http.ResponseWriter, r *http.Request, action auth.Action) bool {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		apiError(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	if !actor.Can(action) {
		apiError(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

const corsHeaders = "authorization, x-client-info, apikey, content-type"

// cors allows cross-origin calls from any origin and answers preflight.
func cors(allowHeaders string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		if r.Method == http.MethodOptions {
			h.Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("ok"))
			return
		}
		next(w, r)
	})
}
