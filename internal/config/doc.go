// Package config loads, normalizes, and validates Lantern's TOML
// configuration. Load starts from repository defaults, applies the
// config file when one exists, then fills API keys from environment
// variables before validation.
package config
