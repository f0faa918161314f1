// Package textgen implements the synchronous text-generation client used by
// the merge engine and the run command: one blocking round trip per request,
// no internal retries.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"folio/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings required to talk to the generation
// endpoint.
type Config struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the text-generation endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient constructs a text-generation client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Message is one turn of a generation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generateRequest struct {
	Model      string         `json:"model"`
	System     string         `json:"system,omitempty"`
	Transcript transcript     `json:"transcript"`
	Options    map[string]any `json:"options,omitempty"`
}

type transcript struct {
	Messages []Message `json:"messages"`
}

type generateResponse struct {
	Messages []Message `json:"messages"`
}

// Generate issues one generation request and returns the final assistant
// message. A response without an assistant message is an error: the merge
// engine must never silently substitute an empty reconciliation.
func (c *Client) Generate(ctx context.Context, system string, messages []Message, options map[string]any) (string, error) {
	if len(messages) == 0 {
		return "", services.Wrap(services.ErrSubmission, "textgen", "generate", "no messages", nil)
	}

	payload := generateRequest{
		Model:      c.cfg.Model,
		System:     strings.TrimSpace(system),
		Transcript: transcript{Messages: messages},
		Options:    options,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrSubmission, "textgen", "generate", "encode body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/generate", bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrSubmission, "textgen", "generate", "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrSubmission, "textgen", "generate", "http error", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrSubmission, "textgen", "generate", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.Wrap(services.ErrSubmission, "textgen", "generate", "", &services.StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		})
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", services.Wrap(services.ErrSubmission, "textgen", "generate", "decode response", err)
	}
	for i := len(parsed.Messages) - 1; i >= 0; i-- {
		if parsed.Messages[i].Role == "assistant" {
			if content := strings.TrimSpace(parsed.Messages[i].Content); content != "" {
				return content, nil
			}
		}
	}
	return "", services.Wrap(services.ErrSubmission, "textgen", "generate", "response lacks assistant message", nil)
}
