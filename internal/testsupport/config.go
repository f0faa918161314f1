// Package testsupport provides shared fixtures for folio tests.
package testsupport

import (
	"net/url"
	"path/filepath"
	"strconv"
	"testing"

	"folio/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithServiceURL points the config at a test server URL of the form
// "http://host:port".
func WithServiceURL(t testing.TB, rawURL string) ConfigOption {
	t.Helper()
	return func(cfg *config.Config) {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			t.Fatalf("parse service url %q: %v", rawURL, err)
		}
		port, err := strconv.Atoi(parsed.Port())
		if err != nil {
			t.Fatalf("parse service port %q: %v", parsed.Port(), err)
		}
		cfg.Service.Scheme = parsed.Scheme
		cfg.Service.Host = parsed.Hostname()
		cfg.Service.Port = port
	}
}

// WithPollInterval overrides the job polling cadence, in seconds.
func WithPollInterval(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Jobs.PollInterval = seconds
	}
}

// WithContinueOnFailure switches batch runs into degradation mode.
func WithContinueOnFailure(enabled bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Jobs.ContinueOnFailure = enabled
	}
}
