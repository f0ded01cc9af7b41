package api

import (
	"context"

	"lantern/internal/queue"
)

// JobReader abstracts the queue persistence interactions needed for API
// queries.
type JobReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	GetByID(ctx context.Context, id string) (*queue.Job, error)
	History(ctx context.Context, id string) ([]queue.StageRecord, error)
	GetResult(ctx context.Context, id string) (*queue.Result, error)
	UsageForJob(ctx context.Context, id string) ([]queue.Usage, error)
}

// JobService exposes read-only job operations returning API DTOs.
type JobService struct {
	store JobReader
}

// NewJobService constructs a JobService around the provided reader.
func NewJobService(store JobReader) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store}
}

// List returns jobs filtered by status.
func (s *JobService) List(ctx context.Context, statuses ...queue.Status) ([]Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Describe fetches a single job with its recorded provider usage. The
// job pointer is nil when no such job exists.
func (s *JobService) Describe(ctx context.Context, id string) (*JobResponse, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	resp := &JobResponse{Job: FromJob(job)}
	if usage, err := s.store.UsageForJob(ctx, id); err == nil {
		resp.Usage = FromUsage(usage)
	}
	return resp, nil
}

// History fetches the ordered ledger for a job. Unknown jobs surface the
// store's not-found error.
func (s *JobService) History(ctx context.Context, id string) (*HistoryResponse, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	records, err := s.store.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return &HistoryResponse{JobID: id, Events: FromStageRecords(records)}, nil
}

// Result fetches the artifact bundle for a job, nil when none is stored
// yet.
func (s *JobService) Result(ctx context.Context, id string) (*Result, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	result, err := s.store.GetResult(ctx, id)
	if err != nil || result == nil {
		return nil, err
	}
	dto := FromResult(result)
	return &dto, nil
}
