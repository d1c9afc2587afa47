package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kiln/internal/ir"
)

// SaveItem stores value under (key, id), replacing any previous value.
func (s *Store) SaveItem(ctx context.Context, key string, id ir.Identifier, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (key, identifier, value)
		VALUES (?, ?, ?)
		ON CONFLICT(key, identifier) DO UPDATE SET value = excluded.value
	`, key, string(id), value)
	if err != nil {
		return fmt.Errorf("save item %s/%s: %w", key, id, err)
	}
	return nil
}

// LoadItem returns the value stored under (key, id).
// ok is false when no value is stored.
func (s *Store) LoadItem(ctx context.Context, key string, id ir.Identifier) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM items WHERE key = ? AND identifier = ?
	`, key, string(id)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load item %s/%s: %w", key, id, err)
	}
	return value, true, nil
}
