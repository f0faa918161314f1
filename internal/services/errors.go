package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the error taxonomy shared by every workflow. Strict
// mode surfaces all of them with a categorized message and a non-zero exit;
// continue-on-failure intercepts job, transport, and timeout failures during
// transcription and degrades instead.
var (
	ErrSubmission = errors.New("submission error")
	ErrJob        = errors.New("job error")
	ErrAlignment  = errors.New("alignment error")
	ErrTimeout    = errors.New("timeout")
	ErrIO         = errors.New("io error")
)

// Wrap builds an error message that includes workflow context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StatusError reports a non-success HTTP response from the remote service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Degradable reports whether the error may be converted into a synthesized
// placeholder artifact when continue-on-failure is enabled. Alignment
// failures are never degradable: merging misaligned documents would corrupt
// page correspondence silently.
func Degradable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrAlignment)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
