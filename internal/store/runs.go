package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kiln/internal/ir"
)

// Run statuses recorded in the runs table.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// RunRecord is one row of build bookkeeping.
type RunRecord struct {
	Seq           int64
	RunID         string
	EngineVersion string
	Status        string
	Waves         int
	Executed      int
}

// BeginRun inserts a run row in the running state and returns its seq.
func (s *Store) BeginRun(ctx context.Context, runID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, engine_version, status)
		VALUES (?, ?, ?)
	`, runID, ir.EngineVersion, RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("begin run: last insert id: %w", err)
	}
	return seq, nil
}

// FinishRun records the final status and counters of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string, waves, executed int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, waves = ?, executed = ? WHERE run_id = ?
	`, status, waves, executed, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run %q", runID)
	}
	return nil
}

// LastRun returns the most recent run record, or ok=false if none exist.
func (s *Store) LastRun(ctx context.Context) (RunRecord, bool, error) {
	var r RunRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, run_id, engine_version, status, waves, executed
		FROM runs ORDER BY seq DESC LIMIT 1
	`).Scan(&r.Seq, &r.RunID, &r.EngineVersion, &r.Status, &r.Waves, &r.Executed)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, false, nil
	}
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("last run: %w", err)
	}
	return r, true, nil
}
