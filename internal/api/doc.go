// Package api defines wire-format types and converters for the HTTP API.
// It translates internal queue models into transport DTOs so the daemon
// handlers and the CLI client share one payload vocabulary without
// coupling to internal types.
//
// # Key Types
//
// Job: transport representation of a queue entry. StageEvent: one status
// ledger record. Result: the artifact bundle with media references
// rewritten to /media/ URLs. DaemonStatus and HealthReport: runtime and
// readiness payloads for the status and health endpoints.
//
// # Converters
//
// FromJob, FromStageRecord, FromResult, and FromUsage map the queue
// package's models onto DTOs. MediaURL turns a stored artifact reference
// into the URL path the daemon serves it under.
//
// # Design Notes
//
// DTOs use snake_case JSON tags matching the submission and polling
// contract (job_id, created_at, generation_mode). Timestamps use RFC3339
// with milliseconds. Artifact references are stored relative to the media
// root and only become URLs at this boundary.
package api
