package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/config"
	"folio/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

// setupCLITestEnv isolates HOME and writes a config file pointing into temp
// directories. Pass a test server URL to aim folio at a fake service.
func setupCLITestEnv(t *testing.T, server *httptest.Server) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	opts := []testsupport.ConfigOption{testsupport.WithPollInterval(1)}
	if server != nil {
		opts = append(opts, testsupport.WithServiceURL(t, server.URL))
	}
	cfg := testsupport.NewConfig(t, opts...)
	if server != nil {
		cfg.Service.PathPrefix = ""
	}

	configPath := filepath.Join(homeDir, ".config", "folio", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\noutput_dir = %q\nlog_dir = %q\n\n"+
			"[service]\nscheme = %q\nhost = %q\nport = %d\npath_prefix = %q\nmodel = %q\n\n"+
			"[jobs]\npoll_interval = %d\ncontinue_on_failure = %t\n",
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
		cfg.Service.Scheme,
		cfg.Service.Host,
		cfg.Service.Port,
		cfg.Service.PathPrefix,
		cfg.Service.Model,
		cfg.Jobs.PollInterval,
		cfg.Jobs.ContinueOnFailure,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
