// Package services defines shared utilities consumed by the pipeline runner
// and the external provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, worker indexes, and
//     correlation identifiers for logging and tracing.
//   - The error taxonomy the runner classifies failures by: provider errors
//     with a retryable flag, ledger/result persistence failures, cancellation,
//     and misconfiguration, plus the Wrap helper that keeps error text uniform.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
