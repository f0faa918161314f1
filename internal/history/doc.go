// Package history persists a ledger of processing runs in SQLite so that
// past transcriptions, merges, and derivations can be listed and inspected
// after the fact.
package history
