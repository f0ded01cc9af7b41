// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The Service interface covers the job milestones the pipeline
// emits so callers share consistent, user-friendly messages without
// duplicating HTTP glue.
//
// Extend this package if you need alternative transports; all pipeline code
// depends only on the simple Service interface.
package notifications
