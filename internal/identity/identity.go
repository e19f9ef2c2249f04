// Package identity tracks who the CLI is signed in as. The server is the
// source of truth; the local cache only remembers the last known session.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/client"
)

var (
	// ErrNotSignedIn is returned when an operation needs a session and none
	// is cached.
	ErrNotSignedIn = errors.New("not signed in (run 'vh login')")
	// ErrSessionEnded is returned by Refresh when the server no longer
	// accepts the cached session. The cache has been cleared.
	ErrSessionEnded = errors.New("session ended, sign in again")
)

// Profile is the cached snapshot of the signed-in account.
type Profile struct {
	ID           string    `yaml:"id" json:"id"`
	Username     string    `yaml:"username" json:"username"`
	Email        string    `yaml:"email,omitempty" json:"email,omitempty"`
	FullName     string    `yaml:"full_name,omitempty" json:"fullName,omitempty"`
	Role         string    `yaml:"role" json:"role"`
	Capabilities []string  `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	ExpiresAt    time.Time `yaml:"expires_at,omitempty" json:"expiresAt,omitempty"`
}

// Can reports whether the cached capabilities include action.
func (p *Profile) Can(action string) bool {
	if p == nil {
		return false
	}
	for _, c := range p.Capabilities {
		if c == action {
			return true
		}
	}
	return false
}

// Snapshot is what the cache persists. An empty token means anonymous.
type Snapshot struct {
	Token   string
	Profile *Profile
}

// Cache persists the snapshot between CLI invocations.
type Cache interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
	Clear() error
}

// API is the part of the REST client the provider needs.
type API interface {
	Login(ctx context.Context, username, password string) (*client.LoginResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*client.MeResponse, error)
	SetToken(token string)
}

// Provider signs the CLI in and out and reports the current identity.
type Provider interface {
	SignIn(ctx context.Context, username, password string) (*Profile, error)
	SignOut(ctx context.Context) error
	Current() (*Profile, bool)
	Refresh(ctx context.Context) (*Profile, error)
}

// Remote is a Provider that forwards to the server and caches the result.
type Remote struct {
	api   API
	cache Cache
}

var _ Provider = (*Remote)(nil)

// NewRemote creates a provider. The cached token, if any, is installed on
// the API client.
func NewRemote(api API, cache Cache) *Remote {
	r := &Remote{api: api, cache: cache}
	if snap, err := cache.Load(); err == nil && snap.Token != "" {
		api.SetToken(snap.Token)
	}
	return r
}

// SignIn authenticates with the server. On failure the cached state is left
// as it was.
func (r *Remote) SignIn(ctx context.Context, username, password string) (*Profile, error) {
	resp, err := r.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	p := profileOf(resp.User, resp.Capabilities)
	p.ExpiresAt = resp.ExpiresAt
	if err := r.cache.Save(Snapshot{Token: resp.Token, Profile: p}); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	r.api.SetToken(resp.Token)
	return p, nil
}

// SignOut ends the session on the server when it can and always clears the
// local state.
func (r *Remote) SignOut(ctx context.Context) error {
	if snap, err := r.cache.Load(); err == nil && snap.Token != "" {
		if err := r.api.Logout(ctx); err != nil && !client.IsUnauthorized(err) {
			slog.WarnContext(ctx, "server sign-out failed, clearing local session anyway", "error", err)
		}
	}
	r.api.SetToken("")
	if err := r.cache.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Current returns the cached profile without contacting the server.
func (r *Remote) Current() (*Profile, bool) {
	snap, err := r.cache.Load()
	if err != nil || snap.Token == "" || snap.Profile == nil {
		return nil, false
	}
	return snap.Profile, true
}

// Refresh re-reads the profile from the server. A rejected session clears
// the cache and returns ErrSessionEnded.
func (r *Remote) Refresh(ctx context.Context) (*Profile, error) {
	snap, err := r.cache.Load()
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if snap.Token == "" {
		return nil, ErrNotSignedIn
	}

	me, err := r.api.Me(ctx)
	if client.IsUnauthorized(err) {
		r.api.SetToken("")
		if cerr := r.cache.Clear(); cerr != nil {
			return nil, fmt.Errorf("clearing session: %w", cerr)
		}
		return nil, ErrSessionEnded
	}
	if err != nil {
		return nil, err
	}

	p := profileOf(me.User, me.Capabilities)
	if snap.Profile != nil {
		p.ExpiresAt = snap.Profile.ExpiresAt
	}
	snap.Profile = p
	if err := r.cache.Save(snap); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return p, nil
}

func profileOf(a account.Agent, caps map[string]bool) *Profile {
	p := &Profile{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		FullName: a.FullName,
		Role:     string(a.Role),
	}
	for c, ok := range caps {
		if ok {
			p.Capabilities = append(p.Capabilities, c)
		}
	}
	sort.Strings(p.Capabilities)
	return p
}
