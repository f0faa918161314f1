// Package transcribe runs document conversion batches against the
// processing service, one file at a time, with optional degradation to
// placeholder artifacts when individual files fail.
package transcribe
