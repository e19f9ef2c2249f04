// Package purpose manages the controlled vocabulary of visit purposes.
package purpose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evcraddock/visit-hub/internal/store"
)

// Slot is the storage slot holding the vocabulary.
const Slot = "purposes"

var (
	// ErrEmpty is returned for a blank purpose.
	ErrEmpty = errors.New("purpose is required")
	// ErrDuplicate is returned when the purpose already exists (exact match).
	ErrDuplicate = errors.New("purpose already exists")
	// ErrNotFound is returned when renaming or removing an unknown purpose.
	ErrNotFound = errors.New("purpose not found")

	errSeeded = errors.New("purposes already seeded")
)

// Defaults seed an empty vocabulary on first start.
var Defaults = []string{"Meeting", "Interview", "Delivery", "Maintenance", "Training", "Other"}

// Store persists the vocabulary as one ordered slot of strings.
type Store struct {
	doc *store.Document[[]string]
}

// NewStore creates a purpose store.
func NewStore(slot store.Slot) *Store {
	return &Store{doc: store.NewDocument(slot, Slot, func() []string { return []string{} })}
}

// List returns the vocabulary in insertion order.
func (s *Store) List(ctx context.Context) []string {
	purposes, err := s.doc.Get(ctx)
	if err != nil {
		slog.WarnContext(ctx, "listing purposes failed", "error", err)
		return []string{}
	}
	if purposes == nil {
		return []string{}
	}
	return purposes
}

// Add appends a trimmed purpose. Uniqueness is exact and case-sensitive.
func (s *Store) Add(ctx context.Context, purpose string) (string, error) {
	p := strings.TrimSpace(purpose)
	if p == "" {
		return "", ErrEmpty
	}
	err := s.doc.Mutate(ctx, func(purposes *[]string) error {
		if indexOf(*purposes, p) >= 0 {
			return ErrDuplicate
		}
		*purposes = append(*purposes, p)
		return nil
	})
	if err != nil {
		return "", err
	}
	return p, nil
}

// Rename replaces oldName with newName in place. Visits already recorded
// keep the label they were saved with.
func (s *Store) Rename(ctx context.Context, oldName, newName string) (string, error) {
	p := strings.TrimSpace(newName)
	if p == "" {
		return "", ErrEmpty
	}
	err := s.doc.Mutate(ctx, func(purposes *[]string) error {
		i := indexOf(*purposes, oldName)
		if i < 0 {
			return ErrNotFound
		}
		if p != oldName && indexOf(*purposes, p) >= 0 {
			return ErrDuplicate
		}
		(*purposes)[i] = p
		return nil
	})
	if err != nil {
		return "", err
	}
	return p, nil
}

// Remove deletes a purpose.
func (s *Store) Remove(ctx context.Context, purpose string) error {
	return s.doc.Mutate(ctx, func(purposes *[]string) error {
		i := indexOf(*purposes, purpose)
		if i < 0 {
			return ErrNotFound
		}
		*purposes = append((*purposes)[:i], (*purposes)[i+1:]...)
		return nil
	})
}

// EnsureDefaults seeds the default vocabulary when the slot has never been
// written. An emptied vocabulary is left empty.
func (s *Store) EnsureDefaults(ctx context.Context) error {
	seeded := false
	err := s.doc.Mutate(ctx, func(purposes *[]string) error {
		exists, err := s.doc.Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return errSeeded
		}
		*purposes = append([]string(nil), Defaults...)
		seeded = true
		return nil
	})
	if errors.Is(err, errSeeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seeding purposes: %w", err)
	}
	if seeded {
		slog.InfoContext(ctx, "seeded default purposes", "count", len(Defaults))
	}
	return nil
}

func indexOf(purposes []string, p string) int {
	for i, existing := range purposes {
		if existing == p {
			return i
		}
	}
	return -1
}
