package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evcraddock/visit-hub/internal/account"
)

var (
	// ErrUserNotFound is returned when no account has the username.
	ErrUserNotFound = errors.New("user not found")
	// ErrWrongPassword is returned when the password does not match.
	ErrWrongPassword = errors.New("wrong password")
	// ErrAccountDisabled is returned for an inactive account.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrNoCredentials is returned when a request carries no session cookie
	// or bearer token.
	ErrNoCredentials = errors.New("no credentials")
)

// Actor is the authenticated caller of a request.
type Actor struct {
	Agent     account.Agent
	SessionID string
}

// Can reports whether the actor may perform action.
func (a *Actor) Can(action Action) bool {
	return a != nil && Allowed(a.Agent.Role, action)
}

// Grant is the result of a successful sign-in.
type Grant struct {
	Agent   account.Agent
	Session Session
	Token   string
}

// Authenticator checks credentials against the account store and resolves
// request actors from sessions and bearer tokens.
type Authenticator struct {
	accounts *account.Store
	sessions *SessionStore
	tokens   *TokenIssuer
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(accounts *account.Store, sessions *SessionStore, tokens *TokenIssuer) *Authenticator {
	return &Authenticator{accounts: accounts, sessions: sessions, tokens: tokens}
}

// Sessions returns the session store, for cookie handling.
func (a *Authenticator) Sessions() *SessionStore {
	return a.sessions
}

// Login verifies credentials and stamps the account's last login.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*account.Agent, error) {
	agent, ok := a.accounts.FindByUsername(ctx, strings.TrimSpace(username))
	if !ok {
		return nil, ErrUserNotFound
	}

	if err := a.accounts.CheckPassword(ctx, agent.ID, password); err != nil {
		if errors.Is(err, account.ErrPasswordMismatch) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("checking password: %w", err)
	}
	if !agent.IsActive {
		return nil, ErrAccountDisabled
	}

	stamped, err := a.accounts.UpdateLastLogin(ctx, agent.ID)
	if err != nil {
		slog.WarnContext(ctx, "stamping last login", "account_id", agent.ID, "error", err)
		return &agent, nil
	}
	return &stamped, nil
}

// SignIn logs in and opens a session with a bearer token bound to it.
func (a *Authenticator) SignIn(ctx context.Context, username, password, userAgent string) (Grant, error) {
	agent, err := a.Login(ctx, username, password)
	if err != nil {
		return Grant{}, err
	}

	sess, err := a.sessions.Create(ctx, agent.ID, userAgent)
	if err != nil {
		return Grant{}, err
	}
	token, err := a.tokens.Issue(sess)
	if err != nil {
		return Grant{}, err
	}

	slog.InfoContext(ctx, "signed in", "account_id", agent.ID)
	return Grant{Agent: *agent, Session: sess, Token: token}, nil
}

// SignOut ends a session, revoking its cookie and bearer token.
func (a *Authenticator) SignOut(ctx context.Context, sessionID string) error {
	return a.sessions.Delete(ctx, sessionID)
}

// Revoke ends every session of an account.
func (a *Authenticator) Revoke(ctx context.Context, accountID string) error {
	return a.sessions.DeleteForAccount(ctx, accountID)
}

// Resolve finds the actor from the session cookie or the bearer token.
// The agent, including its role, is always read from the account store.
func (a *Authenticator) Resolve(r *http.Request) (*Actor, error) {
	ctx := r.Context()

	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		sess, err := a.sessions.Lookup(ctx, c.Value)
		if err != nil {
			return nil, err
		}
		return a.actor(ctx, sess)
	}

	raw, ok := BearerToken(r)
	if !ok {
		return nil, ErrNoCredentials
	}
	return a.ResolveToken(ctx, raw)
}

// ResolveToken verifies a bearer token and the session it is bound to.
func (a *Authenticator) ResolveToken(ctx context.Context, raw string) (*Actor, error) {
	sessionID, accountID, err := a.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	sess, err := a.sessions.Lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.AccountID != accountID {
		return nil, ErrInvalidToken
	}
	return a.actor(ctx, sess)
}

func (a *Authenticator) actor(ctx context.Context, sess Session) (*Actor, error) {
	agent, err := a.accounts.Get(ctx, sess.AccountID)
	if account.IsNotFound(err) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}
	if !agent.IsActive {
		return nil, ErrAccountDisabled
	}
	return &Actor{Agent: agent, SessionID: sess.ID}, nil
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}
