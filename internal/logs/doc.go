// Package logs reads lanternd run logs for the CLI.
//
// The daemon writes one log file per run and keeps a stable lanternd.log
// pointer at the newest one. This package tails that pointer with bounded
// memory and powers `lantern logs --follow`. When the pointer moves to a
// fresh run log, follow mode restarts from the top of the new file.
package logs
