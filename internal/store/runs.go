package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run status values.
const (
	RunRunning  = "running"
	RunDone     = "done"
	RunFailed   = "failed"
	RunCanceled = "canceled"
)

// Run is the bookkeeping row of one mining invocation.
type Run struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Processed  int       `json:"processed"`
	Found      int       `json:"found"`
	New        int       `json:"new"`
	Failures   int       `json:"failures"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// BeginRun inserts a run row in the running state.
func (s *Store) BeginRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, started_at, status) VALUES (?, ?, ?, ?)
	`, r.ID, r.Mode, formatTime(r.StartedAt), RunRunning)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", r.ID, err)
	}
	return nil
}

// FinishRun stores the final counters and status of r.
func (s *Store) FinishRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, processed = ?, found = ?, new = ?, failures = ?,
		    status = ?, error = ?
		WHERE id = ?
	`, formatTime(r.FinishedAt), r.Processed, r.Found, r.New, r.Failures,
		r.Status, nullString(r.Error), r.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	return nil
}

// Runs returns the most recent runs first, at most limit rows.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, started_at, finished_at, processed, found, new,
		       failures, status, error
		FROM runs
		ORDER BY rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r                 Run
			started, finished sql.NullString
			errText           sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Mode, &started, &finished, &r.Processed,
			&r.Found, &r.New, &r.Failures, &r.Status, &errText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		r.Error = errText.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
