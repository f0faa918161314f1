package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[service]
host = "docs.example.com"
port = 9000
scheme = "https"
path_prefix = "v2/"
model = "premium"

[jobs]
poll_interval = 2
continue_on_failure = true

[merge]
chunk_group = "rechunked"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolution mismatch: exists=%v path=%s", exists, resolved)
	}
	if got := cfg.BaseURL(); got != "https://docs.example.com:9000/v2" {
		t.Fatalf("base url mismatch: %s", got)
	}
	if cfg.PollInterval() != 2*time.Second {
		t.Fatalf("poll interval mismatch: %s", cfg.PollInterval())
	}
	if !cfg.Jobs.ContinueOnFailure {
		t.Fatal("continue_on_failure not applied")
	}
	if cfg.Merge.ChunkGroup != "rechunked" {
		t.Fatalf("merge chunk group mismatch: %s", cfg.Merge.ChunkGroup)
	}
	// Unset sections keep defaults.
	if cfg.Logging.Level != "info" {
		t.Fatalf("logging default lost: %s", cfg.Logging.Level)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("missing file reported as existing")
	}
	if cfg.Service.Host != defaultServiceHost {
		t.Fatalf("default host lost: %s", cfg.Service.Host)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero poll interval", func(c *Config) { c.Jobs.PollInterval = 0 }},
		{"bad port", func(c *Config) { c.Service.Port = 0 }},
		{"bad scheme", func(c *Config) { c.Service.Scheme = "gopher" }},
		{"empty model", func(c *Config) { c.Service.Model = "" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatal(err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestNormalizePathPrefix(t *testing.T) {
	cfg := Default()
	cfg.Service.PathPrefix = "api/v9/"
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if cfg.Service.PathPrefix != "/api/v9" {
		t.Fatalf("prefix not normalized: %q", cfg.Service.PathPrefix)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[service]") {
		t.Fatal("sample config missing service section")
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/x")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "x") {
		t.Fatalf("expand mismatch: %s", got)
	}
}
