// Package daemon coordinates the background services of a lantern
// process and enforces single-instance execution.
//
// A Daemon owns the queue store, the media store, and the pipeline
// worker pool, guards startup with a lock file under the log directory,
// and runs the HTTP API server that accepts uploads and serves job
// state and stored artifacts.
//
// # HTTP API
//
// POST /api/jobs submits an audio clip (multipart: audio file plus
// generation_mode form field) and returns 202 with the job id. GET
// /api/jobs lists jobs, optionally filtered by status. GET
// /api/jobs/{id} returns one job with its provider usage, {id}/history
// the status ledger, {id}/result the artifact bundle. POST
// /api/jobs/{id}/cancel records a cancellation request honored at the
// next stage boundary. GET /api/health aggregates readiness probes and
// answers 503 until every probe passes. GET /api/status reports daemon
// runtime state. /media/ serves stored artifacts from the media root.
//
// Every request carries a correlation id: the X-Request-ID header is
// accepted or a fresh uuid is minted, echoed on the response, and
// annotated onto the request context for logging.
package daemon
