// Package store persists ordered record collections into versioned key-value slots.
//
// A slot holds one whole collection serialized as JSON. Every write is a
// compare-and-swap on the slot version, so two writers racing on the same
// slot cannot silently drop each other's change: the loser sees
// ErrVersionConflict and Collection retries its read-modify-write.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record id does not exist in a collection.
	ErrNotFound = errors.New("store: not found")
	// ErrVersionConflict is returned when a slot changed between read and write.
	ErrVersionConflict = errors.New("store: version conflict")
)

// Slot is a durable key-value slot backend.
type Slot interface {
	// Load returns the slot contents and version. A missing slot yields nil data and version 0.
	Load(ctx context.Context, key string) ([]byte, int64, error)
	// Store writes data if the slot is still at version (0 means the slot must not exist yet)
	// and returns the new version.
	Store(ctx context.Context, key string, data []byte, version int64) (int64, error)
	// Remove deletes the slot. Removing a missing slot is not an error.
	Remove(ctx context.Context, key string) error
}
