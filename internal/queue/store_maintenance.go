package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusQueued:
			health.Queued += count
		case StatusFailed:
			health.Failed += count
		case StatusCompleted:
			health.Completed += count
		default:
			if status.IsProcessing() {
				health.Processing += count
			}
		}
	}
	return health, nil
}

func (s *Store) processingJobIDs(ctx context.Context, staleBefore *time.Time) ([]string, error) {
	query := `SELECT id FROM jobs WHERE status IN (` + makePlaceholders(len(processingStatuses)) + `)`
	args := make([]any, 0, len(processingStatuses)+1)
	for status := range processingStatuses {
		args = append(args, string(status))
	}
	if staleBefore != nil {
		query += ` AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`
		args = append(args, formatTime(*staleBefore))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select in-flight jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) requeue(ctx context.Context, ids []string, detail string) (int64, error) {
	var requeued int64
	for _, id := range ids {
		if _, err := s.AppendStatus(ctx, id, StatusQueued, detail); err != nil {
			// Terminal races are fine; the job finished on its own.
			if errors.Is(err, ErrTerminalStatus) || errors.Is(err, ErrNotFound) {
				continue
			}
			return requeued, err
		}
		requeued++
	}
	return requeued, nil
}

// RecoverInterrupted requeues every in-flight job and releases stray
// claims. Call at daemon startup before workers spin up, when no other
// process can own a job.
func (s *Store) RecoverInterrupted(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	ids, err := s.processingJobIDs(ctx, nil)
	if err != nil {
		return 0, err
	}
	requeued, err := s.requeue(ctx, ids, "requeued after interrupted processing")
	if err != nil {
		return requeued, err
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL`,
		formatTime(time.Now().UTC()),
		StatusQueued,
	)
	if err != nil {
		return requeued, fmt.Errorf("release stray claims: %w", err)
	}
	released, err := res.RowsAffected()
	if err != nil {
		return requeued, err
	}
	return requeued + released, nil
}

// ReclaimStale requeues in-flight jobs whose heartbeat expired before
// cutoff. Run periodically so a wedged worker cannot strand a job.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	ids, err := s.processingJobIDs(ctx, &cutoff)
	if err != nil {
		return 0, err
	}
	requeued, err := s.requeue(ctx, ids, "requeued after stalled heartbeat")
	if err != nil {
		return requeued, err
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		formatTime(time.Now().UTC()),
		StatusQueued,
		formatTime(cutoff),
	)
	if err != nil {
		return requeued, fmt.Errorf("release stale claims: %w", err)
	}
	released, err := res.RowsAffected()
	if err != nil {
		return requeued, err
	}
	return requeued + released, nil
}

// CheckHealth returns diagnostic information about the job database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("job database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat job database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("job database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("job database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping job database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'jobs'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
		} else {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM jobs")
		if err := row.Scan(&health.TotalJobs); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count jobs: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
