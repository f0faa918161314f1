package history

import "time"

// Kind classifies what a run produced.
type Kind string

const (
	KindTranscribe Kind = "transcribe"
	KindChunk      Kind = "chunk"
	KindSummarize  Kind = "summarize"
	KindMerge      Kind = "merge"
)

// Status represents the lifecycle of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusDegraded  Status = "degraded"
	StatusFailed    Status = "failed"
)

var statusSet = map[Status]struct{}{
	StatusRunning:   {},
	StatusSucceeded: {},
	StatusDegraded:  {},
	StatusFailed:    {},
}

// ValidStatus reports whether the status is one of the recognized values.
func ValidStatus(status Status) bool {
	_, ok := statusSet[status]
	return ok
}

// Record is one processing run persisted in SQLite.
type Record struct {
	ID           string
	Kind         Kind
	InputPath    string
	JobID        string
	Status       Status
	ArtifactPath string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
