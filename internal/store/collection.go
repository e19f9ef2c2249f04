package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// maxAttempts bounds the read-modify-write retries on version conflicts.
const maxAttempts = 5

// errUnchanged aborts a mutation without writing.
var errUnchanged = errors.New("store: unchanged")

// Kind describes how a Collection identifies and stamps records of type T.
type Kind[T any] struct {
	// Slot is the slot key the collection persists into.
	Slot string
	// ID returns the record identifier.
	ID func(*T) string
	// Created returns the record creation time.
	Created func(*T) time.Time
	// Stamp sets the identity and audit fields.
	Stamp func(r *T, id string, createdAt, updatedAt time.Time)
}

// Info approximates how much of the storage capacity a slot consumes.
type Info struct {
	Used       int64   `json:"used"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Option configures a Collection.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

// NewID returns a time-ordered unique identifier (UUIDv7), falling back to a
// random UUID if the clock sequence cannot be read.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Collection is an ordered sequence of records persisted as one slot.
type Collection[T any] struct {
	slot  Slot
	kind  Kind[T]
	now   func() time.Time
	newID func() string
}

// NewCollection creates a collection over the given slot backend.
func NewCollection[T any](slot Slot, kind Kind[T], opts ...Option) *Collection[T] {
	o := options{now: time.Now, newID: NewID}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T]{slot: slot, kind: kind, now: o.now, newID: o.newID}
}

// load reads the slot. Unparsable contents are treated as an empty collection
// while keeping the version, so the next write replaces them.
func (c *Collection[T]) load(ctx context.Context) ([]T, int64, error) {
	data, version, err := c.slot.Load(ctx, c.kind.Slot)
	if err != nil {
		return nil, 0, err
	}
	if len(data) == 0 {
		return []T{}, version, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		slog.WarnContext(ctx, "discarding unparsable slot", "slot", c.kind.Slot, "error", err)
		return []T{}, version, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, version, nil
}

// mutate applies fn to the current contents and writes the result,
// retrying on version conflicts.
func (c *Collection[T]) mutate(ctx context.Context, fn func([]T) ([]T, error)) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		items, version, err := c.load(ctx)
		if err != nil {
			return err
		}

		next, err := fn(items)
		if err != nil {
			return err
		}
		if next == nil {
			next = []T{}
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", c.kind.Slot, err)
		}

		_, err = c.slot.Store(ctx, c.kind.Slot, data, version)
		if errors.Is(err, ErrVersionConflict) {
			slog.DebugContext(ctx, "slot version conflict, retrying", "slot", c.kind.Slot, "attempt", attempt+1)
			continue
		}
		return err
	}
	return ErrVersionConflict
}

// List returns all records in insertion order. It never fails: a missing or
// unreadable slot yields an empty sequence.
func (c *Collection[T]) List(ctx context.Context) []T {
	items, _, err := c.load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "listing slot failed", "slot", c.kind.Slot, "error", err)
		return []T{}
	}
	return items
}

// Get returns the record with the given id.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	for _, r := range c.List(ctx) {
		if c.kind.ID(&r) == id {
			return r, nil
		}
	}
	var zero T
	return zero, ErrNotFound
}

// Find returns the first record matching pred.
func (c *Collection[T]) Find(ctx context.Context, pred func(*T) bool) (T, bool) {
	for _, r := range c.List(ctx) {
		if pred(&r) {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// Add assigns a fresh id and timestamps, appends the record and persists.
func (c *Collection[T]) Add(ctx context.Context, rec T) (T, error) {
	now := c.now().UTC()
	c.kind.Stamp(&rec, c.newID(), now, now)

	err := c.mutate(ctx, func(items []T) ([]T, error) {
		return append(items, rec), nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

// AddChecked is Add with a precondition evaluated against the current
// contents inside the same read-modify-write, e.g. a uniqueness check.
func (c *Collection[T]) AddChecked(ctx context.Context, rec T, check func(items []T) error) (T, error) {
	now := c.now().UTC()
	c.kind.Stamp(&rec, c.newID(), now, now)

	err := c.mutate(ctx, func(items []T) ([]T, error) {
		if err := check(items); err != nil {
			return nil, err
		}
		return append(items, rec), nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

// Update applies fn to the record with the given id, refreshes its update
// time and persists. The id and creation time cannot be changed by fn.
// ErrNotFound leaves the slot untouched. fn may be called more than once.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(r *T, all []T) error) (T, error) {
	var updated T
	err := c.mutate(ctx, func(items []T) ([]T, error) {
		for i := range items {
			if c.kind.ID(&items[i]) != id {
				continue
			}
			orig := items[i]
			r := orig
			if err := fn(&r, items); err != nil {
				return nil, err
			}
			c.kind.Stamp(&r, id, c.kind.Created(&orig), c.now().UTC())
			items[i] = r
			updated = r
			return items, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return updated, nil
}

// Delete removes the record with the given id and reports whether it existed.
// An unknown id is a successful no-op.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	return c.DeleteChecked(ctx, id, nil)
}

// DeleteChecked is Delete with a precondition on the record and the full
// contents, evaluated inside the same read-modify-write.
func (c *Collection[T]) DeleteChecked(ctx context.Context, id string, check func(r *T, all []T) error) (bool, error) {
	removed := false
	err := c.mutate(ctx, func(items []T) ([]T, error) {
		removed = false
		kept := make([]T, 0, len(items))
		for i := range items {
			if c.kind.ID(&items[i]) == id {
				if check != nil {
					if err := check(&items[i], items); err != nil {
						return nil, err
					}
				}
				removed = true
				continue
			}
			kept = append(kept, items[i])
		}
		if !removed {
			return nil, errUnchanged
		}
		return kept, nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return removed, nil
}

// Replace overwrites the whole collection.
func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	return c.mutate(ctx, func([]T) ([]T, error) {
		return items, nil
	})
}

// Clear removes the slot entirely.
func (c *Collection[T]) Clear(ctx context.Context) error {
	return c.slot.Remove(ctx, c.kind.Slot)
}

// Raw returns the slot bytes exactly as persisted (nil when absent).
func (c *Collection[T]) Raw(ctx context.Context) ([]byte, error) {
	data, _, err := c.slot.Load(ctx, c.kind.Slot)
	return data, err
}

// Info reports the approximate bytes used by the slot against capacity.
func (c *Collection[T]) Info(ctx context.Context, capacity int64) (Info, error) {
	data, err := c.Raw(ctx)
	if err != nil {
		return Info{}, err
	}
	info := Info{Used: int64(len(data)), Total: capacity}
	if capacity > 0 {
		info.Percentage = float64(info.Used) / float64(capacity) * 100
	}
	return info, nil
}
