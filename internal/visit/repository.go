package visit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evcraddock/visit-hub/internal/store"
)

// Slot is the storage slot holding the visit collection.
const Slot = "visits"

var kind = store.Kind[Visit]{
	Slot:    Slot,
	ID:      func(v *Visit) string { return v.ID },
	Created: func(v *Visit) time.Time { return v.CreatedAt },
	Stamp: func(v *Visit, id string, createdAt, updatedAt time.Time) {
		v.ID = id
		v.CreatedAt = createdAt
		v.UpdatedAt = updatedAt
	},
}

// Repository provides CRUD operations for visits.
type Repository struct {
	visits *store.Collection[Visit]
}

// NewRepository creates a visit repository over a slot backend.
func NewRepository(slot store.Slot, opts ...store.Option) *Repository {
	return &Repository{visits: store.NewCollection(slot, kind, opts...)}
}

// List returns all visits in insertion order.
func (r *Repository) List(ctx context.Context) []Visit {
	return r.visits.List(ctx)
}

// Get returns a visit by ID, or store.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (Visit, error) {
	return r.visits.Get(ctx, id)
}

// Add validates and records a new visit.
func (r *Repository) Add(ctx context.Context, in Input) (Visit, error) {
	v := in.Visit()
	if err := Normalize(&v); err != nil {
		return Visit{}, err
	}

	saved, err := r.visits.Add(ctx, v)
	if err != nil {
		return Visit{}, fmt.Errorf("adding visit: %w", err)
	}
	slog.DebugContext(ctx, "visit added", "visit_id", saved.ID)
	return saved, nil
}

// Update merges the patch over an existing visit. Unknown ids return
// store.ErrNotFound and leave storage untouched.
func (r *Repository) Update(ctx context.Context, id string, p Patch) (Visit, error) {
	updated, err := r.visits.Update(ctx, id, func(v *Visit, _ []Visit) error {
		p.Apply(v)
		return Normalize(v)
	})
	if err != nil {
		return Visit{}, err
	}
	slog.DebugContext(ctx, "visit updated", "visit_id", id)
	return updated, nil
}

// Delete removes a visit and reports whether it existed. Deleting an unknown
// id succeeds.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := r.visits.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("deleting visit: %w", err)
	}
	return removed, nil
}

// Search returns the visits matching query; an empty query returns all.
func (r *Repository) Search(ctx context.Context, query string) []Visit {
	all := r.List(ctx)
	if query == "" {
		return all
	}
	return Search(all, query)
}

// Stats computes statistics over the current collection.
func (r *Repository) Stats(ctx context.Context, now time.Time) Stats {
	return ComputeStats(r.List(ctx), now)
}

// Import validates raw JSON and replaces the whole collection with it.
// Any invalid element rejects the import without writing.
func (r *Repository) Import(ctx context.Context, data []byte) (int, error) {
	visits, err := ParseImport(data)
	if err != nil {
		return 0, err
	}
	if err := r.visits.Replace(ctx, visits); err != nil {
		return 0, fmt.Errorf("importing visits: %w", err)
	}
	slog.InfoContext(ctx, "visits imported", "count", len(visits))
	return len(visits), nil
}

// Clear removes the whole visit collection.
func (r *Repository) Clear(ctx context.Context) error {
	if err := r.visits.Clear(ctx); err != nil {
		return fmt.Errorf("clearing visits: %w", err)
	}
	return nil
}

// StorageInfo reports the approximate space used by the visit collection.
func (r *Repository) StorageInfo(ctx context.Context, capacity int64) (store.Info, error) {
	return r.visits.Info(ctx, capacity)
}
