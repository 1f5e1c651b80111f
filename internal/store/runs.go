package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run is one recorded pipeline run.
type Run struct {
	ID           int64
	SourceID     string
	Status       string
	Mode         string
	ConceptCount int64
	ErrorMessage sql.NullString
	StartedAt    time.Time
	FinishedAt   sql.NullTime
}

// ClaimRun inserts a running row for sourceID and reports whether this
// caller won the claim. The unique index on source_id makes the claim
// atomic: two concurrent invocations for the same source cannot both win.
// A previously failed run may be reclaimed, so webhook redelivery remains
// the retry path; running and completed runs stay claimed.
func (s *Store) ClaimRun(ctx context.Context, sourceID string) (bool, error) {
	res, err := s.ExecContext(ctx, `
		INSERT INTO runs (source_id, status) VALUES (?, ?)
		ON CONFLICT(source_id) DO UPDATE
		SET status = excluded.status,
		    error_message = NULL,
		    finished_at = NULL,
		    started_at = CURRENT_TIMESTAMP
		WHERE runs.status = 'failed'
	`, sourceID, StatusRunning)
	if err != nil {
		return false, fmt.Errorf("claim run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim run rows affected: %w", err)
	}
	return n > 0, nil
}

// ReleaseRun deletes a claimed row so the source can be retried. Used when
// a run fails before producing any records and the caller wants redelivery
// to work.
func (s *Store) ReleaseRun(ctx context.Context, sourceID string) error {
	if _, err := s.ExecContext(ctx, "DELETE FROM runs WHERE source_id = ? AND status = ?", sourceID, StatusRunning); err != nil {
		return fmt.Errorf("release run: %w", err)
	}
	return nil
}

// CompleteRun marks a run as completed with its final concept count.
func (s *Store) CompleteRun(ctx context.Context, sourceID, mode string, conceptCount int) error {
	_, err := s.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, mode = ?, concept_count = ?, finished_at = CURRENT_TIMESTAMP
		WHERE source_id = ?
	`, StatusCompleted, mode, conceptCount, sourceID)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// FailRun marks a run as failed with its error message.
func (s *Store) FailRun(ctx context.Context, sourceID, mode, errMsg string) error {
	_, err := s.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, mode = ?, error_message = ?, finished_at = CURRENT_TIMESTAMP
		WHERE source_id = ?
	`, StatusFailed, mode, errMsg, sourceID)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return nil
}

// GetRun returns the run row for a source ID.
func (s *Store) GetRun(ctx context.Context, sourceID string) (*Run, error) {
	row := s.QueryRowContext(ctx, `
		SELECT id, source_id, status, mode, concept_count, error_message, started_at, finished_at
		FROM runs WHERE source_id = ?
	`, sourceID)

	var r Run
	err := row.Scan(&r.ID, &r.SourceID, &r.Status, &r.Mode, &r.ConceptCount, &r.ErrorMessage, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RunStats summarizes the run log.
type RunStats struct {
	Total     int64
	Completed int64
	Failed    int64
	Running   int64
	Concepts  int64
}

// Stats aggregates counts across all recorded runs.
func (s *Store) Stats(ctx context.Context) (*RunStats, error) {
	row := s.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(concept_count), 0)
		FROM runs
	`)

	var st RunStats
	if err := row.Scan(&st.Total, &st.Completed, &st.Failed, &st.Running, &st.Concepts); err != nil {
		return nil, fmt.Errorf("scan stats: %w", err)
	}
	return &st, nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, source_id, status, mode, concept_count, error_message, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.SourceID, &r.Status, &r.Mode, &r.ConceptCount, &r.ErrorMessage, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}
