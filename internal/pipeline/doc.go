// Package pipeline drives queued jobs through the generation stages.
//
// A Pool claims queued jobs and hands each one to the Runner, which walks
// the job through transcription, summarization, artifact generation, and
// result storage in a fixed order, skipping the artifact stages the job's
// generation mode does not ask for. Every stage transition is appended to
// the status ledger before the stage's provider is invoked, so the ledger
// always records what the daemon was doing when it stopped. Retryable
// provider failures are retried with doubling backoff inside the stage;
// permanent failures mark the job failed while preserving whatever
// artifacts earlier stages produced. Workers send heartbeats while a job
// is in flight, and stale jobs are reclaimed back onto the queue.
package pipeline
