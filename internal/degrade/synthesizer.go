// Package degrade builds placeholder documents for failed transcription
// jobs, so batch runs hand downstream tooling a well-formed artifact instead
// of nothing.
package degrade

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"folio/internal/dom"
	"folio/internal/services"
	"folio/internal/services/docproc"
)

// Category classifies the failure embedded in a synthesized document.
type Category string

const (
	CategoryJobError  Category = "job_error"
	CategoryHTTPError Category = "http_error"
	CategoryTimeout   Category = "timeout"
	CategoryException Category = "exception"
)

// Classify maps an error chain to a failure category plus the upstream error
// type when the remote service reported one.
func Classify(err error) (Category, string) {
	var jobFailure *docproc.JobFailure
	if errors.As(err, &jobFailure) {
		return CategoryJobError, jobFailure.Kind
	}
	if errors.Is(err, services.ErrTimeout) {
		return CategoryTimeout, ""
	}
	var statusErr *services.StatusError
	if errors.As(err, &statusErr) {
		return CategoryHTTPError, ""
	}
	return CategoryException, ""
}

// Synthesizer constructs placeholder documents for failed jobs.
type Synthesizer struct {
	model string
	now   func() time.Time
}

// Option customizes the synthesizer.
type Option func(*Synthesizer)

// WithClock overrides the timestamp source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a synthesizer that stamps documents with the given model
// name.
func New(model string, opts ...Option) *Synthesizer {
	s := &Synthesizer{model: model, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize produces a well-formed placeholder document for a failed run
// over inputPath. The document id and metadata.document_sha256 are both the
// SHA-256 of the input bytes, so a failed run's output is reproducibly
// identifiable and cannot collide with a successful transcription of the
// same file (whose id is derived differently upstream). The result always
// carries exactly one "pages" chunk group with one chunk, matching the
// structural contract of a successful result.
func (s *Synthesizer) Synthesize(inputPath string, cause error) (*dom.Document, error) {
	digest, size, err := dom.FileContentID(inputPath)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "degrade", "synthesize", "read input", err)
	}

	category, errorType := Classify(cause)
	timestamp := s.now().UTC().Format(time.RFC3339)
	notice := s.renderNotice(filepath.Base(inputPath), category, errorType, cause, timestamp)

	doc := dom.New(digest)
	doc.Content = notice
	doc.Metadata.Set(dom.MetaFilename, filepath.Base(inputPath))
	doc.Metadata.Set(dom.MetaDocumentSHA256, digest)
	doc.Metadata.Set(dom.MetaSizeBytes, size)
	doc.Metadata.Set(dom.MetaTranscriptionStatus, dom.StatusFailed)
	failure := map[string]any{
		"category":  string(category),
		"message":   errorMessage(cause),
		"timestamp": timestamp,
		"model":     s.model,
	}
	if errorType != "" {
		failure["error_type"] = errorType
	}
	doc.Metadata.Set(dom.MetaFailure, failure)

	doc.SetGroup(dom.GroupPages, []*dom.Chunk{{
		Content: notice,
		Metadata: dom.MetadataFromPairs(
			dom.MetaPageNumber, 1,
			dom.MetaTranscriptionStatus, dom.StatusFailed,
		),
	}})
	return doc, nil
}

func (s *Synthesizer) renderNotice(filename string, category Category, errorType string, cause error, timestamp string) string {
	var b strings.Builder
	b.WriteString("# Transcription Failed\n\n")
	fmt.Fprintf(&b, "- **File:** %s\n", filename)
	fmt.Fprintf(&b, "- **Category:** %s\n", category)
	if errorType != "" {
		fmt.Fprintf(&b, "- **Upstream error type:** %s\n", errorType)
	}
	fmt.Fprintf(&b, "- **Error:** %s\n", errorMessage(cause))
	fmt.Fprintf(&b, "- **Model:** %s\n", s.model)
	fmt.Fprintf(&b, "- **Timestamp:** %s\n", timestamp)
	return b.String()
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown failure"
	}
	return err.Error()
}
