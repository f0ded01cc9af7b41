package queue

import (
	"context"
	"fmt"
	"time"
)

// RecordUsage stores token consumption reported by a provider call.
// Callers treat failures as non-fatal; usage is bookkeeping, not state.
func (s *Store) RecordUsage(ctx context.Context, usage Usage) error {
	createdAt := usage.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO provider_usage (job_id, stage, provider, model, prompt_tokens, completion_tokens, total_tokens, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		usage.JobID,
		usage.Stage,
		usage.Provider,
		usage.Model,
		usage.PromptTokens,
		usage.CompletionTokens,
		usage.TotalTokens,
		formatTime(createdAt),
	); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// UsageForJob returns provider usage rows for a job in insertion order.
func (s *Store) UsageForJob(ctx context.Context, jobID string) ([]Usage, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, stage, provider, model, prompt_tokens, completion_tokens, total_tokens, created_at
         FROM provider_usage WHERE job_id = ? ORDER BY id ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("usage for %s: %w", jobID, err)
	}
	defer rows.Close()

	var usages []Usage
	for rows.Next() {
		var (
			usage     Usage
			createdAt string
		)
		if err := rows.Scan(
			&usage.ID,
			&usage.JobID,
			&usage.Stage,
			&usage.Provider,
			&usage.Model,
			&usage.PromptTokens,
			&usage.CompletionTokens,
			&usage.TotalTokens,
			&createdAt,
		); err != nil {
			return nil, err
		}
		if usage.CreatedAt, err = parseTimeString(createdAt); err != nil {
			return nil, fmt.Errorf("parse usage created_at: %w", err)
		}
		usages = append(usages, usage)
	}
	return usages, rows.Err()
}
