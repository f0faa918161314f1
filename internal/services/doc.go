// Package services holds cross-cutting primitives shared by the remote
// service clients: the error taxonomy, HTTP status errors, and context
// annotations used for structured logging.
package services
