// Package account manages application accounts (agents), their roles and
// their password hashes.
package account

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Role controls what an agent may do.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
)

// ValidRoles is the set of allowed roles.
var ValidRoles = []Role{RoleAdmin, RoleUser, RoleViewer}

// IsValid checks if a role is recognized.
func (r Role) IsValid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// ParseRole parses a role, accepting "standard" as an alias of user.
// Unknown values fall back to user.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == "standard" {
		return RoleUser
	}
	if !r.IsValid() {
		return RoleUser
	}
	return r
}

// Agent is an application account.
type Agent struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	FullName  string     `json:"fullName,omitempty"`
	Role      Role       `json:"role"`
	IsActive  bool       `json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// IsActiveAdmin reports whether the agent counts toward the admin quorum.
func (a *Agent) IsActiveAdmin() bool {
	return a.Role == RoleAdmin && a.IsActive
}

// NewAgent holds the fields of an account to create. A nil IsActive means active.
type NewAgent struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Role     Role   `json:"role"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// Patch is a partial account update. Nil fields are left unchanged.
type Patch struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	// ErrDuplicate is returned when the username is already taken.
	ErrDuplicate = errors.New("username already taken")
	// ErrLastAdmin is returned when a change would leave no active admin.
	ErrLastAdmin = errors.New("at least one active admin must remain")
)

// ValidationError reports invalid account fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid account: " + strings.Join(parts, ", ")
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return invalid("password", "must be at least 6 characters")
	}
	return nil
}

func sameUsername(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
