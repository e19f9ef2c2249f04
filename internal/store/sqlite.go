package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteSlot keeps slots in the slots table.
type SQLiteSlot struct {
	db *sql.DB
}

// NewSQLiteSlot creates a slot backend over an open, migrated database.
func NewSQLiteSlot(db *sql.DB) *SQLiteSlot {
	return &SQLiteSlot{db: db}
}

// Load reads a slot.
func (s *SQLiteSlot) Load(ctx context.Context, key string) ([]byte, int64, error) {
	var data []byte
	var version int64
	err := s.db.QueryRowContext(ctx,
		"SELECT data, version FROM slots WHERE key = ?", key,
	).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("loading slot %s: %w", key, err)
	}
	return data, version, nil
}

// Store writes a slot if its version still matches.
func (s *SQLiteSlot) Store(ctx context.Context, key string, data []byte, version int64) (int64, error) {
	now := time.Now().Unix()

	var (
		result sql.Result
		err    error
	)
	if version == 0 {
		result, err = s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO slots (key, data, version, updated_at) VALUES (?, ?, 1, ?)",
			key, data, now,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			"UPDATE slots SET data = ?, version = version + 1, updated_at = ? WHERE key = ? AND version = ?",
			data, now, key, version,
		)
	}
	if err != nil {
		return 0, fmt.Errorf("storing slot %s: %w", key, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return 0, ErrVersionConflict
	}

	return version + 1, nil
}

// Remove deletes a slot.
func (s *SQLiteSlot) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM slots WHERE key = ?", key); err != nil {
		return fmt.Errorf("removing slot %s: %w", key, err)
	}
	return nil
}
