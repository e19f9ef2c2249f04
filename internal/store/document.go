package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Document is a single JSON value persisted as one slot.
type Document[T any] struct {
	slot  Slot
	key   string
	empty func() T
}

// NewDocument creates a document over the given slot key. empty builds the
// value used when the slot is absent or unparsable.
func NewDocument[T any](slot Slot, key string, empty func() T) *Document[T] {
	return &Document[T]{slot: slot, key: key, empty: empty}
}

func (d *Document[T]) load(ctx context.Context) (T, int64, error) {
	data, version, err := d.slot.Load(ctx, d.key)
	if err != nil {
		var zero T
		return zero, 0, err
	}
	v := d.empty()
	if len(data) == 0 {
		return v, version, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		slog.WarnContext(ctx, "discarding unparsable slot", "slot", d.key, "error", err)
		return d.empty(), version, nil
	}
	return v, version, nil
}

// Get returns the current value.
func (d *Document[T]) Get(ctx context.Context) (T, error) {
	v, _, err := d.load(ctx)
	return v, err
}

// Exists reports whether the slot has ever been written.
func (d *Document[T]) Exists(ctx context.Context) (bool, error) {
	data, _, err := d.slot.Load(ctx, d.key)
	return data != nil, err
}

// Mutate applies fn to the current value and writes the result, retrying
// the whole read-modify-write on version conflicts. Returning an error from
// fn aborts without writing.
func (d *Document[T]) Mutate(ctx context.Context, fn func(*T) error) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		v, version, err := d.load(ctx)
		if err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", d.key, err)
		}
		_, err = d.slot.Store(ctx, d.key, data, version)
		if errors.Is(err, ErrVersionConflict) {
			slog.DebugContext(ctx, "slot version conflict, retrying", "slot", d.key, "attempt", attempt+1)
			continue
		}
		return err
	}
	return ErrVersionConflict
}
