package store

import (
	"context"
	"errors"
)

// Map is a keyed mapping persisted as one slot, e.g. account id to password hash.
type Map[V any] struct {
	doc *Document[map[string]V]
}

// NewMap creates a map over the given slot key.
func NewMap[V any](slot Slot, key string) *Map[V] {
	return &Map[V]{doc: NewDocument(slot, key, func() map[string]V { return make(map[string]V) })}
}

// Get returns the value stored under k.
func (m *Map[V]) Get(ctx context.Context, k string) (V, bool, error) {
	entries, err := m.doc.Get(ctx)
	if err != nil {
		var zero V
		return zero, false, err
	}
	v, ok := entries[k]
	return v, ok, nil
}

// Set stores v under k.
func (m *Map[V]) Set(ctx context.Context, k string, v V) error {
	return m.doc.Mutate(ctx, func(entries *map[string]V) error {
		if *entries == nil {
			*entries = make(map[string]V)
		}
		(*entries)[k] = v
		return nil
	})
}

// Delete removes k. Deleting a missing key is not an error.
func (m *Map[V]) Delete(ctx context.Context, k string) error {
	err := m.doc.Mutate(ctx, func(entries *map[string]V) error {
		if _, ok := (*entries)[k]; !ok {
			return errUnchanged
		}
		delete(*entries, k)
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	return err
}
