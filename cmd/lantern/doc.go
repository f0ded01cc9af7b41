// Package main hosts the Lantern CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// HTTP calls against the daemon API: submitting audio, listing and
// inspecting jobs, fetching generated artifacts, cancelling work, and
// configuration scaffolding. Configuration resolution and API address
// discovery live in commandContext so subcommands stay declarative.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands
// or flags here.
package main
