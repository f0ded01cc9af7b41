package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// WriteResult persists the artifact bundle for a finished job. Results
// are write-once; a second write fails with ErrResultExists.
func (s *Store) WriteResult(ctx context.Context, result Result) error {
	if strings.TrimSpace(result.JobID) == "" {
		return errors.New("queue: result job id is required")
	}
	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO job_results (job_id, transcript, summary, title, image_path, video_path, error_message, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.JobID,
		result.Transcript,
		result.Summary,
		result.Title,
		nullableString(result.ImagePath),
		nullableString(result.VideoPath),
		nullableString(result.ErrorMessage),
		formatTime(createdAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: %s", ErrResultExists, result.JobID)
		}
		return fmt.Errorf("write result for %s: %w", result.JobID, err)
	}
	return nil
}

// GetResult returns the stored result or nil when none exists yet.
func (s *Store) GetResult(ctx context.Context, jobID string) (*Result, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM job_results WHERE job_id = ?`, jobID)
	result, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result for %s: %w", jobID, err)
	}
	return result, nil
}
