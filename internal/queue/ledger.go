package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AppendStatus appends a ledger record for the job and updates the
// materialized job row in the same transaction. The assigned sequence
// number is returned. Appends against completed or failed jobs fail
// with ErrTerminalStatus; unknown jobs fail with ErrNotFound.
//
// Appending StatusFailed persists detail as the job's error message.
// Appending StatusQueued or a terminal status releases the worker claim
// by clearing the heartbeat.
func (s *Store) AppendStatus(ctx context.Context, jobID string, status Status, detail string) (int64, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return 0, fmt.Errorf("queue: %w", err)
	}

	var sequence int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, jobID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read job status: %w", err)
		}
		if Status(current).IsTerminal() {
			return fmt.Errorf("%w: %s is %s", ErrTerminalStatus, jobID, current)
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM job_events WHERE job_id = ?`,
			jobID,
		).Scan(&sequence); err != nil {
			return fmt.Errorf("next sequence number: %w", err)
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO job_events (job_id, sequence_number, status, detail, created_at)
             VALUES (?, ?, ?, ?, ?)`,
			jobID,
			sequence,
			string(status),
			nullableString(detail),
			formatTime(now),
		); err != nil {
			return fmt.Errorf("insert ledger record: %w", err)
		}

		update := `UPDATE jobs SET status = ?, updated_at = ?`
		args := []any{string(status), formatTime(now)}
		if status == StatusFailed {
			update += `, error_message = ?`
			args = append(args, nullableString(detail))
		}
		if status == StatusQueued || status.IsTerminal() {
			update += `, last_heartbeat = NULL`
		}
		update += ` WHERE id = ?`
		args = append(args, jobID)
		if _, err := tx.ExecContext(ctx, update, args...); err != nil {
			return fmt.Errorf("update job status: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sequence, nil
}

// CurrentStatus returns the newest ledger record for the job.
func (s *Store) CurrentStatus(ctx context.Context, jobID string) (StageRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM job_events
         WHERE job_id = ? ORDER BY sequence_number DESC LIMIT 1`,
		jobID,
	)
	record, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StageRecord{}, ErrNotFound
	}
	if err != nil {
		return StageRecord{}, fmt.Errorf("current status for %s: %w", jobID, err)
	}
	return record, nil
}

// History returns the job's full ledger in sequence order.
func (s *Store) History(ctx context.Context, jobID string) ([]StageRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM job_events
         WHERE job_id = ? ORDER BY sequence_number ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", jobID, err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		record, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}
