// Package config loads, normalizes, and validates the TOML configuration
// consumed by every folio command.
package config
