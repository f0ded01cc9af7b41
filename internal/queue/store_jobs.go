package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewJobID returns a fresh job identifier. Callers that need the ID
// before inserting the row (to place the uploaded file) generate it
// here and pass it through NewJobParams.
func NewJobID() string {
	return uuid.NewString()
}

// NewJobParams describes a job submission.
type NewJobParams struct {
	ID               string
	SourcePath       string
	OriginalFilename string
	Mode             GenerationMode
}

// NewJob inserts a job and its initial queued ledger record in one
// transaction. When the store has a capacity limit, submissions beyond
// the limit fail with ErrQueueFull.
func (s *Store) NewJob(ctx context.Context, params NewJobParams) (*Job, error) {
	if strings.TrimSpace(params.SourcePath) == "" {
		return nil, errors.New("queue: source path is required")
	}
	if _, err := ParseMode(string(params.Mode)); err != nil {
		return nil, fmt.Errorf("queue: %w", err)
	}
	id := params.ID
	if id == "" {
		id = NewJobID()
	}

	now := time.Now().UTC()
	job := &Job{
		ID:               id,
		SourcePath:       params.SourcePath,
		OriginalFilename: params.OriginalFilename,
		Mode:             params.Mode,
		Status:           StatusQueued,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if s.capacity > 0 {
			var queued int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(1) FROM jobs WHERE status = ?`, StatusQueued,
			).Scan(&queued); err != nil {
				return fmt.Errorf("count queued jobs: %w", err)
			}
			if queued >= s.capacity {
				return ErrQueueFull
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (id, source_path, original_filename, generation_mode, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			job.ID,
			job.SourcePath,
			job.OriginalFilename,
			string(job.Mode),
			string(job.Status),
			formatTime(now),
			formatTime(now),
		); err != nil {
			return fmt.Errorf("insert job: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO job_events (job_id, sequence_number, status, detail, created_at)
             VALUES (?, 1, ?, ?, ?)`,
			job.ID,
			string(StatusQueued),
			"job accepted",
			formatTime(now),
		); err != nil {
			return fmt.Errorf("insert queued event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetByID returns a job or nil when no row exists.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// List returns jobs in submission order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNextQueued atomically claims the oldest unclaimed queued job by
// stamping its heartbeat. Returns nil when nothing is claimable.
func (s *Store) ClaimNextQueued(ctx context.Context) (*Job, error) {
	var claimed *Job
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+jobColumns+` FROM jobs
             WHERE status = ? AND last_heartbeat IS NULL
             ORDER BY created_at ASC, id ASC LIMIT 1`,
			StatusQueued,
		)
		job, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select claimable job: %w", err)
		}

		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`UPDATE jobs SET last_heartbeat = ?, updated_at = ?
             WHERE id = ? AND status = ? AND last_heartbeat IS NULL`,
			formatTime(now),
			formatTime(now),
			job.ID,
			StatusQueued,
		)
		if err != nil {
			return fmt.Errorf("claim job %s: %w", job.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("claim rows affected: %w", err)
		}
		if affected == 0 {
			return nil
		}
		job.LastHeartbeat = &now
		job.UpdatedAt = now
		claimed = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := time.Now().UTC()
	if _, err := s.execWithRetry(ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		formatTime(now),
		formatTime(now),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// RequestCancel flags a job for cancellation. The pipeline honors the
// flag at the next stage boundary. Requesting cancellation twice is a
// no-op; cancelling a finished job returns ErrTerminalStatus.
func (s *Store) RequestCancel(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read job status: %w", err)
		}
		if Status(status).IsTerminal() {
			return ErrTerminalStatus
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET cancel_requested_at = COALESCE(cancel_requested_at, ?), updated_at = ?
             WHERE id = ?`,
			formatTime(now),
			formatTime(now),
			id,
		); err != nil {
			return fmt.Errorf("request cancel: %w", err)
		}
		return nil
	})
}
