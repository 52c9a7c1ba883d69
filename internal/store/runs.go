package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusError   = "error"
)

// Run is one recorded analysis execution.
type Run struct {
	ID          string
	Analysis    string
	SpecHash    string
	Dataset     string
	Fingerprint string
	StartedAt   time.Time
	FinishedAt  time.Time // zero until finished
	Status      string
	Message     string
}

// RecordRun inserts a running provenance row and returns its id. SpecHash
// is the canonical hash of the analysis; Fingerprint is the fingerprint of
// the dataset the run reads.
func (s *Store) RecordRun(ctx context.Context, analysis, specHash, dataset, fingerprint string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, analysis, spec_hash, dataset, fingerprint, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, analysis, specHash, dataset, fingerprint,
		time.Now().UTC().Format(time.RFC3339Nano), RunStatusRunning)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run ok or failed. The message holds the error text for
// failed runs and is empty otherwise.
func (s *Store) FinishRun(ctx context.Context, id, status, message string) error {
	if status != RunStatusOK && status != RunStatusError {
		return fmt.Errorf("finish run: invalid status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, message = ? WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339Nano), status, message, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: no run with id %q", id)
	}
	return nil
}

// ListRuns returns runs for one analysis (or all when analysis is empty),
// newest first.
func (s *Store) ListRuns(ctx context.Context, analysis string) ([]Run, error) {
	query := `
		SELECT id, analysis, spec_hash, dataset, fingerprint, started_at, finished_at, status, message
		FROM runs
	`
	var args []any
	if analysis != "" {
		query += " WHERE analysis = ?"
		args = append(args, analysis)
	}
	query += " ORDER BY started_at DESC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt string
		var finishedAt, message sql.NullString
		if err := rows.Scan(&run.ID, &run.Analysis, &run.SpecHash, &run.Dataset,
			&run.Fingerprint, &startedAt, &finishedAt, &run.Status, &message); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("list runs: started_at: %w", err)
		}
		if finishedAt.Valid {
			run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("list runs: finished_at: %w", err)
			}
		}
		run.Message = message.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
