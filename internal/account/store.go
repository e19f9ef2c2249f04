package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evcraddock/visit-hub/internal/store"
)

const (
	// AgentSlot holds the account list.
	AgentSlot = "agents"
	// PasswordSlot holds the account id to password hash map.
	PasswordSlot = "passwords"
)

var kind = store.Kind[Agent]{
	Slot:    AgentSlot,
	ID:      func(a *Agent) string { return a.ID },
	Created: func(a *Agent) time.Time { return a.CreatedAt },
	Stamp: func(a *Agent, id string, createdAt, updatedAt time.Time) {
		a.ID = id
		a.CreatedAt = createdAt
		a.UpdatedAt = updatedAt
	},
}

// Store manages agents and their password hashes.
type Store struct {
	agents    *store.Collection[Agent]
	passwords *store.Map[string]
	params    HashParams
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithHashParams overrides the argon2id parameters for new hashes.
func WithHashParams(p HashParams) Option {
	return func(s *Store) { s.params = p }
}

// NewStore creates an account store over a slot backend.
func NewStore(slot store.Slot, opts ...Option) *Store {
	s := &Store{
		agents:    store.NewCollection(slot, kind),
		passwords: store.NewMap[string](slot, PasswordSlot),
		params:    DefaultHashParams,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all agents in creation order.
func (s *Store) List(ctx context.Context) []Agent {
	return s.agents.List(ctx)
}

// Get returns an agent by ID, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Agent, error) {
	return s.agents.Get(ctx, id)
}

// FindByUsername looks up an agent, ignoring case.
func (s *Store) FindByUsername(ctx context.Context, username string) (Agent, bool) {
	return s.agents.Find(ctx, func(a *Agent) bool {
		return sameUsername(a.Username, username)
	})
}

// Create adds an agent. Usernames are unique ignoring case.
func (s *Store) Create(ctx context.Context, in NewAgent) (Agent, error) {
	a := Agent{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		FullName: strings.TrimSpace(in.FullName),
		Role:     in.Role,
		IsActive: true,
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	if a.Role == "" {
		a.Role = RoleUser
	}
	if err := validate(&a); err != nil {
		return Agent{}, err
	}

	created, err := s.agents.AddChecked(ctx, a, func(all []Agent) error {
		for i := range all {
			if sameUsername(all[i].Username, a.Username) {
				return ErrDuplicate
			}
		}
		return nil
	})
	if err != nil {
		return Agent{}, err
	}
	slog.InfoContext(ctx, "account created", "account_id", created.ID, "role", created.Role)
	return created, nil
}

// Update applies a partial update. It rejects a username clash and any
// change that would leave no active admin.
func (s *Store) Update(ctx context.Context, id string, p Patch) (Agent, error) {
	return s.agents.Update(ctx, id, func(a *Agent, all []Agent) error {
		wasAdmin := a.IsActiveAdmin()

		if p.Username != nil {
			a.Username = strings.TrimSpace(*p.Username)
		}
		if p.Email != nil {
			a.Email = strings.ToLower(strings.TrimSpace(*p.Email))
		}
		if p.FullName != nil {
			a.FullName = strings.TrimSpace(*p.FullName)
		}
		if p.Role != nil {
			a.Role = *p.Role
		}
		if p.IsActive != nil {
			a.IsActive = *p.IsActive
		}
		if err := validate(a); err != nil {
			return err
		}

		for i := range all {
			if all[i].ID != id && sameUsername(all[i].Username, a.Username) {
				return ErrDuplicate
			}
		}
		if wasAdmin && !a.IsActiveAdmin() && countActiveAdmins(all) <= 1 {
			return ErrLastAdmin
		}
		return nil
	})
}

// Delete removes an agent and its password. Deleting the last active admin
// is rejected; an unknown id is a successful no-op.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.agents.DeleteChecked(ctx, id, func(a *Agent, all []Agent) error {
		if a.IsActiveAdmin() && countActiveAdmins(all) <= 1 {
			return ErrLastAdmin
		}
		return nil
	})
	if err != nil || !removed {
		return removed, err
	}
	if err := s.passwords.Delete(ctx, id); err != nil {
		return true, fmt.Errorf("deleting password: %w", err)
	}
	slog.InfoContext(ctx, "account deleted", "account_id", id)
	return true, nil
}

// SetPassword hashes and stores the password of an existing agent.
func (s *Store) SetPassword(ctx context.Context, id, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	if _, err := s.agents.Get(ctx, id); err != nil {
		return err
	}
	hash, err := HashPassword(password, s.params)
	if err != nil {
		return err
	}
	if err := s.passwords.Set(ctx, id, hash); err != nil {
		return fmt.Errorf("storing password: %w", err)
	}
	return nil
}

// CheckPassword verifies the agent's password. An agent without a stored
// password never matches.
func (s *Store) CheckPassword(ctx context.Context, id, password string) error {
	hash, ok, err := s.passwords.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading password: %w", err)
	}
	if !ok {
		return ErrPasswordMismatch
	}
	return VerifyPassword(hash, password)
}

// UpdateLastLogin stamps the agent's last login time.
func (s *Store) UpdateLastLogin(ctx context.Context, id string) (Agent, error) {
	now := s.now().UTC()
	return s.agents.Update(ctx, id, func(a *Agent, _ []Agent) error {
		a.LastLogin = &now
		return nil
	})
}

// Register creates an agent and sets its password. If the password cannot
// be stored the agent is removed again.
func (s *Store) Register(ctx context.Context, in NewAgent, password string) (Agent, error) {
	if err := validatePassword(password); err != nil {
		return Agent{}, err
	}
	a, err := s.Create(ctx, in)
	if err != nil {
		return Agent{}, err
	}
	if err := s.SetPassword(ctx, a.ID, password); err != nil {
		s.Rollback(ctx, a.ID)
		return Agent{}, err
	}
	return a, nil
}

// Edit applies a partial update and, when password is not empty, replaces
// the password. Both are validated before anything is written.
func (s *Store) Edit(ctx context.Context, id string, p Patch, password string) (Agent, error) {
	if password != "" {
		if err := validatePassword(password); err != nil {
			return Agent{}, err
		}
	}
	a, err := s.Update(ctx, id, p)
	if err != nil {
		return Agent{}, err
	}
	if password != "" {
		if err := s.SetPassword(ctx, id, password); err != nil {
			return Agent{}, err
		}
	}
	return a, nil
}

// EnsureAdmin creates the bootstrap admin when no account has its username.
// An existing account is left as is.
func (s *Store) EnsureAdmin(ctx context.Context, username, email, password string) (Agent, bool, error) {
	if existing, ok := s.FindByUsername(ctx, username); ok {
		return existing, false, nil
	}
	a, err := s.Register(ctx, NewAgent{
		Username: username,
		Email:    email,
		FullName: "Administrator",
		Role:     RoleAdmin,
	}, password)
	if err != nil {
		return Agent{}, false, fmt.Errorf("seeding admin: %w", err)
	}
	return a, true, nil
}

// Rollback force-removes a half-created agent and any password stored for
// it. The admin quorum check is skipped since the agent never became usable.
func (s *Store) Rollback(ctx context.Context, id string) {
	if _, err := s.agents.Delete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "rolling back account", "account_id", id, "error", err)
	}
	if err := s.passwords.Delete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "rolling back password", "account_id", id, "error", err)
	}
}

// CountActiveAdmins returns the number of active admins.
func (s *Store) CountActiveAdmins(ctx context.Context) int {
	return countActiveAdmins(s.List(ctx))
}

func countActiveAdmins(all []Agent) int {
	n := 0
	for i := range all {
		if all[i].IsActiveAdmin() {
			n++
		}
	}
	return n
}

func validate(a *Agent) error {
	if a.Username == "" {
		return invalid("username", "required")
	}
	if !a.Role.IsValid() {
		return invalid("role", fmt.Sprintf("must be one of admin, user, viewer, got %q", a.Role))
	}
	return nil
}

// IsNotFound reports whether err means the account does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
