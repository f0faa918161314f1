package docproc

import "fmt"

// Operation identifies a job kind. Each operation maps to its own endpoint
// under the service path prefix but shares the same protocol shape.
type Operation string

const (
	OpConvert   Operation = "convert"
	OpChunk     Operation = "chunk"
	OpSummarize Operation = "summarize"
)

func (op Operation) path() string {
	return "/documents/" + string(op)
}

// State is the remote job lifecycle state reported by status polls.
type State string

const (
	StatePending  State = "pending"
	StateComplete State = "complete"
	StateErrored  State = "error"
)

// Status is one observation of a remote job. Progress counts are surfaced
// for display only and never affect control flow.
type Status struct {
	State          State
	PagesTotal     int
	PagesConverted int
	ErrorMessage   string
	ErrorType      string
}

// JobFailure reports a processing failure raised by the remote service
// itself, as opposed to a transport problem reaching it. Kind carries the
// upstream error type verbatim.
type JobFailure struct {
	Message string
	Kind    string
}

func (e *JobFailure) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("remote job failed (%s): %s", e.Kind, e.Message)
	}
	return "remote job failed: " + e.Message
}

// ResultNotReady reports an HTTP 202 on the result endpoint after the status
// poll already observed completion. The poll loop's completion check and the
// result endpoint can disagree; this is treated as a terminal inconsistency
// rather than retried.
type ResultNotReady struct {
	JobID string
}

func (e *ResultNotReady) Error() string {
	return fmt.Sprintf("job %s: result not ready after completion was observed", e.JobID)
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

type statusResponse struct {
	Status         string `json:"status"`
	PagesTotal     int    `json:"pages_total"`
	PagesConverted int    `json:"pages_converted"`
	Error          string `json:"error"`
	ErrorType      string `json:"error_type"`
}
