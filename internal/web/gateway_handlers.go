package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/auth"
	"github.com/evcraddock/visit-hub/internal/provision"
)

const setupTokenHeader = "x-setup-token"

// gatewayResult is the success body of the account creating endpoints.
type gatewayResult struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
}

// passwordResult is the success body of /admin-update-password.
type passwordResult struct {
	Success bool   `json:"success"`
	User    string `json:"user"`
}

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	caller, ok := s.gatewayCaller(w, r)
	if !ok {
		return
	}

	var req provision.CreateUserRequest
	decodeGatewayBody(r, &req)

	a, err := s.provision.CreateUser(r.Context(), caller, req)
	s.gatewayReply(w, r, a, err)
}

func (s *Server) handleAdminUpdatePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	caller, ok := s.gatewayCaller(w, r)
	if !ok {
		return
	}

	var req provision.UpdatePasswordRequest
	decodeGatewayBody(r, &req)

	a, err := s.provision.UpdatePassword(r.Context(), caller, req)
	if err != nil {
		s.gatewayReply(w, r, a, err)
		return
	}
	apiJSON(w, passwordResult{Success: true, User: a.ID}, http.StatusOK)
}

func (s *Server) handleBootstrapAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req provision.BootstrapRequest
	decodeGatewayBody(r, &req)

	a, err := s.provision.BootstrapAdmin(r.Context(), r.Header.Get(setupTokenHeader), req)
	s.gatewayReply(w, r, a, err)
}

// gatewayCaller resolves the bearer token. A request without one yields a
// nil caller, which the provisioning service rejects as missing_auth.
func (s *Server) gatewayCaller(w http.ResponseWriter, r *http.Request) (*auth.Actor, bool) {
	if r.Header.Get("Authorization") == "" {
		return nil, true
	}
	raw, ok := auth.BearerToken(r)
	if !ok {
		apiError(w, provision.CodeUnauthorized, http.StatusUnauthorized)
		return nil, false
	}
	actor, err := s.authn.ResolveToken(r.Context(), raw)
	if err != nil {
		if auth.StatusFor(err) == http.StatusForbidden {
			apiError(w, provision.CodeForbidden, http.StatusForbidden)
		} else {
			apiError(w, provision.CodeUnauthorized, http.StatusUnauthorized)
		}
		return nil, false
	}
	return actor, true
}

// decodeGatewayBody reads a JSON body, leaving dst zero on malformed input
// so the missing field check reports it.
func decodeGatewayBody(r *http.Request, dst any) {
	_ = json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(dst)
}

func (s *Server) gatewayReply(w http.ResponseWriter, r *http.Request, a account.Agent, err error) {
	if err == nil {
		apiJSON(w, gatewayResult{Success: true, UserID: a.ID}, http.StatusOK)
		return
	}
	var perr *provision.Error
	if errors.As(err, &perr) {
		apiError(w, perr.Reason, perr.Status)
		return
	}
	apiStoreError(w, r, err, "provisioning")
}
