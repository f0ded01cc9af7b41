package queue

import "errors"

var (
	// ErrNotFound indicates the referenced job does not exist.
	ErrNotFound = errors.New("queue: job not found")
	// ErrQueueFull indicates a configured capacity limit rejected a submission.
	ErrQueueFull = errors.New("queue: capacity reached")
	// ErrTerminalStatus indicates an operation targeted a job already
	// completed or failed.
	ErrTerminalStatus = errors.New("queue: job is in a terminal status")
	// ErrResultExists indicates a second result write for the same job.
	ErrResultExists = errors.New("queue: result already written")
)
