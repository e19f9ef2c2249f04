// Package provision implements the privileged account operations: creating
// accounts, resetting passwords and bootstrapping the first administrator.
package provision

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/auth"
)

// Machine-readable rejection reasons.
const (
	CodeMissingAuth        = "missing_auth"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeMissingFields      = "missing_fields"
	CodeCreateFailed       = "create_failed"
	CodeMissingSetupSecret = "missing_setup_secret"
	CodeUnexpected         = "unexpected"
)

// Error is a provisioning rejection. Reason is sent to clients as the
// "error" value: one of the codes above or the underlying message.
type Error struct {
	Status int
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

func reject(status int, reason string) *Error {
	return &Error{Status: status, Reason: reason}
}

// Accounts is the account store as seen by provisioning.
type Accounts interface {
	Get(ctx context.Context, id string) (account.Agent, error)
	Create(ctx context.Context, in account.NewAgent) (account.Agent, error)
	SetPassword(ctx context.Context, id, password string) error
	Rollback(ctx context.Context, id string)
}

// Revoker ends the sessions of an account.
type Revoker interface {
	Revoke(ctx context.Context, accountID string) error
}

// CreateUserRequest is the body of an account creation.
type CreateUserRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// UpdatePasswordRequest is the body of a password reset.
type UpdatePasswordRequest struct {
	UserID      string `json:"user_id"`
	NewPassword string `json:"new_password"`
}

// BootstrapRequest is the body of the first-admin bootstrap.
type BootstrapRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Service runs provisioning operations. Every operation fails closed: the
// caller or secret is checked before anything is written.
type Service struct {
	accounts   Accounts
	revoker    Revoker
	setupToken string
}

// NewService creates a provisioning service. revoker may be nil.
func NewService(accounts Accounts, revoker Revoker, setupToken string) *Service {
	return &Service{accounts: accounts, revoker: revoker, setupToken: setupToken}
}

// requireAdmin re-reads the caller from the account store; the role the
// caller presented is not trusted.
func (s *Service) requireAdmin(ctx context.Context, caller *auth.Actor) error {
	if caller == nil {
		return reject(http.StatusUnauthorized, CodeMissingAuth)
	}
	agent, err := s.accounts.Get(ctx, caller.Agent.ID)
	if err != nil {
		return &Error{Status: http.StatusUnauthorized, Reason: CodeUnauthorized, Err: err}
	}
	if !agent.IsActive || !auth.Allowed(agent.Role, auth.ActionManageAccounts) {
		return reject(http.StatusForbidden, CodeForbidden)
	}
	return nil
}

// CreateUser creates an account with a password. Unknown roles become user.
// If the password cannot be stored the new account is removed again.
func (s *Service) CreateUser(ctx context.Context, caller *auth.Actor, req CreateUserRequest) (account.Agent, error) {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return account.Agent{}, err
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = strings.TrimSpace(req.Email)
	}
	if username == "" || req.Password == "" {
		return account.Agent{}, reject(http.StatusBadRequest, CodeMissingFields)
	}

	agent, err := s.create(ctx, account.NewAgent{
		Username: username,
		Email:    req.Email,
		FullName: req.DisplayName,
		Role:     account.ParseRole(req.Role),
	}, req.Password)
	if err != nil {
		return account.Agent{}, err
	}

	slog.InfoContext(ctx, "account provisioned", "account_id", agent.ID, "by", caller.Agent.ID)
	return agent, nil
}

// UpdatePassword sets another account's password and ends its sessions.
func (s *Service) UpdatePassword(ctx context.Context, caller *auth.Actor, req UpdatePasswordRequest) (account.Agent, error) {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return account.Agent{}, err
	}
	if req.UserID == "" || req.NewPassword == "" {
		return account.Agent{}, reject(http.StatusBadRequest, CodeMissingFields)
	}

	if err := s.accounts.SetPassword(ctx, req.UserID, req.NewPassword); err != nil {
		return account.Agent{}, failure(err, CodeUnexpected)
	}
	agent, err := s.accounts.Get(ctx, req.UserID)
	if err != nil {
		return account.Agent{}, failure(err, CodeUnexpected)
	}

	if s.revoker != nil {
		if err := s.revoker.Revoke(ctx, req.UserID); err != nil {
			slog.WarnContext(ctx, "revoking sessions after password reset", "account_id", req.UserID, "error", err)
		}
	}
	slog.InfoContext(ctx, "password reset", "account_id", req.UserID, "by", caller.Agent.ID)
	return agent, nil
}

// BootstrapAdmin creates an administrator, gated only by the shared setup
// token supplied out of band.
func (s *Service) BootstrapAdmin(ctx context.Context, setupToken string, req BootstrapRequest) (account.Agent, error) {
	if s.setupToken == "" {
		slog.ErrorContext(ctx, "bootstrap requested but no setup token is configured")
		return account.Agent{}, reject(http.StatusInternalServerError, CodeMissingSetupSecret)
	}
	if subtle.ConstantTimeCompare([]byte(setupToken), []byte(s.setupToken)) != 1 {
		return account.Agent{}, reject(http.StatusUnauthorized, CodeUnauthorized)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return account.Agent{}, reject(http.StatusBadRequest, CodeMissingFields)
	}

	name := req.DisplayName
	if name == "" {
		name = "Administrator"
	}
	agent, err := s.create(ctx, account.NewAgent{
		Username: strings.TrimSpace(req.Email),
		Email:    req.Email,
		FullName: name,
		Role:     account.RoleAdmin,
	}, req.Password)
	if err != nil {
		return account.Agent{}, err
	}

	slog.InfoContext(ctx, "administrator bootstrapped", "account_id", agent.ID)
	return agent, nil
}

func (s *Service) create(ctx context.Context, in account.NewAgent, password string) (account.Agent, error) {
	agent, err := s.accounts.Create(ctx, in)
	if err != nil {
		return account.Agent{}, failure(err, CodeCreateFailed)
	}
	if err := s.accounts.SetPassword(ctx, agent.ID, password); err != nil {
		s.accounts.Rollback(ctx, agent.ID)
		return account.Agent{}, failure(err, CodeCreateFailed)
	}
	return agent, nil
}

// failure turns a store error into a rejection carrying its message, or
// fallback when the error is not one a client can act on.
func failure(err error, fallback string) *Error {
	var verr *account.ValidationError
	switch {
	case errors.Is(err, account.ErrDuplicate):
		return &Error{Status: http.StatusConflict, Reason: err.Error(), Err: err}
	case errors.As(err, &verr):
		return &Error{Status: http.StatusBadRequest, Reason: err.Error(), Err: err}
	case account.IsNotFound(err):
		return &Error{Status: http.StatusNotFound, Reason: "user not found", Err: err}
	default:
		return &Error{Status: http.StatusInternalServerError, Reason: fallback, Err: fmt.Errorf("provisioning: %w", err)}
	}
}
