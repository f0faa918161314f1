package docproc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"folio/internal/dom"
	"folio/internal/logging"
	"folio/internal/services"
)

const (
	defaultHTTPTimeout  = 120 * time.Second
	defaultPollInterval = 5 * time.Second
)

// Config captures the runtime settings required to talk to the document
// service.
type Config struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
	PollInterval   time.Duration
}

// Client drives jobs against the document service. One client serves all
// operations; submissions return a Job handle that owns the poll/fetch side
// of the protocol.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	sleeper    func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for poll-loop progress records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleeper overrides how poll-loop sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a document service client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
			PollInterval:   cfg.PollInterval,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Job is a handle to one submitted unit of remote work.
type Job struct {
	client *Client
	op     Operation
	id     string
}

// ID returns the server-assigned job identifier.
func (j *Job) ID() string { return j.id }

// SubmitFile creates a job from raw file bytes using a multipart body. A
// transport failure or a response without a job identifier is a terminal
// submission error; there are no retries at this layer.
func (c *Client) SubmitFile(ctx context.Context, op Operation, path string) (*Job, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, string(op), "submit", "open input", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, services.Wrap(services.ErrSubmission, string(op), "submit", "build multipart body", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, services.Wrap(services.ErrIO, string(op), "submit", "read input", err)
	}
	options, err := json.Marshal(map[string]any{"model": c.cfg.Model})
	if err != nil {
		return nil, services.Wrap(services.ErrSubmission, string(op), "submit", "encode options", err)
	}
	if err := writer.WriteField("options", string(options)); err != nil {
		return nil, services.Wrap(services.ErrSubmission, string(op), "submit", "write options field", err)
	}
	if err := writer.Close(); err != nil {
		return nil, services.Wrap(services.ErrSubmission, string(op), "submit", "finalize multipart body", err)
	}

	return c.submit(ctx, op, &body, writer.FormDataContentType())
}

// SubmitDocument creates a job over an existing document artifact using a
// JSON body. Extra options merge over the configured model.
func (c *Client) SubmitDocument(ctx context.Context, op Operation, doc *dom.Document, options map[string]any) (*Job, error) {
	merged := map[string]any{"model": c.cfg.Model}
	for key, value := range options {
		merged[key] = value
	}
	payload := map[string]any{
		"document": doc,
		"options":  merged,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrSubmission, string(op), "submit", "encode body", err)
	}
	return c.submit(ctx, op, bytes.NewReader(encoded), "application/json")
}

func (c *Client) submit(ctx context.Context, op Operation, body io.Reader, contentType string) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+op.path(), body)
	if err != nil {
		return nil, services.Wrap(services.ErrSubmission, string(op), "submit", "new request", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrSubmission, string(op), "submit", "http error", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrSubmission, string(op), "submit", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrSubmission, string(op), "submit", "", &services.StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(payload),
		})
	}

	var parsed submitResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, services.Wrap(services.ErrSubmission, string(op), "submit", "decode response", err)
	}
	if strings.TrimSpace(parsed.JobID) == "" {
		return nil, services.Wrap(services.ErrSubmission, string(op), "submit", "response lacks job id", nil)
	}

	c.logger.Debug("job submitted",
		slog.String(logging.FieldComponent, string(op)),
		slog.String(logging.FieldJobID, parsed.JobID))
	return &Job{client: c, op: op, id: parsed.JobID}, nil
}

// Status issues one status request.
func (j *Job) Status(ctx context.Context) (Status, error) {
	c := j.client
	url := c.cfg.BaseURL + j.op.path() + "/" + j.id
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Status{}, services.Wrap(services.ErrJob, string(j.op), "poll", "new request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, services.Wrap(services.ErrJob, string(j.op), "poll", "http error", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Status{}, services.Wrap(services.ErrJob, string(j.op), "poll", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Status{}, services.Wrap(services.ErrJob, string(j.op), "poll", "", &services.StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(payload),
		})
	}

	var parsed statusResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Status{}, services.Wrap(services.ErrJob, string(j.op), "poll", "decode response", err)
	}

	status := Status{
		PagesTotal:     parsed.PagesTotal,
		PagesConverted: parsed.PagesConverted,
		ErrorMessage:   parsed.Error,
		ErrorType:      parsed.ErrorType,
	}
	switch strings.ToLower(strings.TrimSpace(parsed.Status)) {
	case "complete", "completed":
		status.State = StateComplete
	case "error", "errored", "failed":
		status.State = StateErrored
	default:
		status.State = StatePending
	}
	return status, nil
}

// Result fetches the completed job's document. An HTTP 202 here means the
// service still reports the result as in flight even though the status poll
// observed completion; it is routed down the same failure path as an
// explicit job error.
func (j *Job) Result(ctx context.Context) (*dom.Document, error) {
	c := j.client
	url := c.cfg.BaseURL + j.op.path() + "/" + j.id + "/result"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrJob, string(j.op), "fetch result", "new request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrJob, string(j.op), "fetch result", "http error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return nil, services.Wrap(services.ErrTimeout, string(j.op), "fetch result", "", &ResultNotReady{JobID: j.id})
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(resp.Body)
		return nil, services.Wrap(services.ErrJob, string(j.op), "fetch result", "", &services.StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(payload),
		})
	}

	doc, err := dom.Decode(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrJob, string(j.op), "fetch result", "decode document", err)
	}
	return doc, nil
}

// Await polls until the job reaches a terminal state, then fetches the
// result. It sleeps the configured fixed interval between polls; onProgress
// is invoked after every pending observation so callers can display counts.
func (j *Job) Await(ctx context.Context, onProgress func(Status)) (*dom.Document, error) {
	for {
		status, err := j.Status(ctx)
		if err != nil {
			return nil, err
		}
		switch status.State {
		case StateComplete:
			return j.Result(ctx)
		case StateErrored:
			return nil, services.Wrap(services.ErrJob, string(j.op), "poll", "", &JobFailure{
				Message: status.ErrorMessage,
				Kind:    status.ErrorType,
			})
		default:
			if onProgress != nil {
				onProgress(status)
			}
			if err := j.client.sleep(ctx, j.client.cfg.PollInterval); err != nil {
				return nil, err
			}
		}
	}
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Cause digs the most specific protocol error out of a wrapped chain.
// Returned values are one of *JobFailure, *ResultNotReady,
// *services.StatusError, or nil when the chain holds none of them.
func Cause(err error) error {
	var jobFailure *JobFailure
	if errors.As(err, &jobFailure) {
		return jobFailure
	}
	var notReady *ResultNotReady
	if errors.As(err, &notReady) {
		return notReady
	}
	var statusErr *services.StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}
	return nil
}
