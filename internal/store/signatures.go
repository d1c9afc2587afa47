package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kiln/internal/ir"
)

// Signature returns the last recorded signature for id.
// ok is false when the resource has never been recorded.
func (s *Store) Signature(ctx context.Context, id ir.Identifier) (sig string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT signature FROM signatures WHERE identifier = ?
	`, string(id)).Scan(&sig)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read signature %s: %w", id, err)
	}
	return sig, true, nil
}

// PutSignatures records signatures in a single transaction.
// Existing rows are replaced; an empty map is a no-op.
func (s *Store) PutSignatures(ctx context.Context, sigs map[ir.Identifier]string) error {
	if len(sigs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put signatures: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signatures (identifier, signature)
		VALUES (?, ?)
		ON CONFLICT(identifier) DO UPDATE SET signature = excluded.signature
	`)
	if err != nil {
		return fmt.Errorf("put signatures: prepare: %w", err)
	}
	defer stmt.Close()

	for _, id := range ir.Sort(mapKeys(sigs)) {
		if _, err := stmt.ExecContext(ctx, string(id), sigs[id]); err != nil {
			return fmt.Errorf("put signatures: %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put signatures: commit: %w", err)
	}
	return nil
}

// DeleteSignatures forgets the recorded signatures of ids.
func (s *Store) DeleteSignatures(ctx context.Context, ids []ir.Identifier) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM signatures WHERE identifier = ?`, string(id)); err != nil {
			return fmt.Errorf("delete signature %s: %w", id, err)
		}
	}
	return nil
}

// RecordedIdentifiers lists every identifier with a recorded signature,
// ordered by identifier.
func (s *Store) RecordedIdentifiers(ctx context.Context) ([]ir.Identifier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier FROM signatures ORDER BY identifier ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	defer rows.Close()

	var out []ir.Identifier
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list signatures: scan: %w", err)
		}
		out = append(out, ir.Identifier(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	return out, nil
}

func mapKeys[V any](m map[ir.Identifier]V) []ir.Identifier {
	out := make([]ir.Identifier, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
