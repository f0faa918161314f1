// Package logging provides the slog-based logging stack used across folio:
// a human-friendly console handler, a JSON handler, and helpers that carry
// run/stage/file annotations from context into structured fields.
package logging
