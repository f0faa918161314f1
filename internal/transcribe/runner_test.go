package transcribe_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"folio/internal/dom"
	"folio/internal/history"
	"folio/internal/services/docproc"
	"folio/internal/testsupport"
	"folio/internal/transcribe"
)

// newConvertServer serves the conversion protocol: filenames containing
// "bad" fail their jobs, everything else completes with a one-page document.
func newConvertServer(t *testing.T, submissions *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents/convert", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		files := r.MultipartForm.File["file"]
		if len(files) != 1 {
			t.Error("expected exactly one file part")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if submissions != nil {
			submissions.Add(1)
		}
		name := strings.TrimSuffix(files[0].Filename, filepath.Ext(files[0].Filename))
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "job-" + name})
	})
	mux.HandleFunc("GET /documents/convert/{job}", func(w http.ResponseWriter, r *http.Request) {
		job := r.PathValue("job")
		if strings.Contains(job, "bad") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "error", "error": "page 3 unreadable", "error_type": "conversion_error",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "complete", "pages_total": 1, "pages_converted": 1,
		})
	})
	mux.HandleFunc("GET /documents/convert/{job}/result", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.PathValue("job"), "job-")
		doc := testsupport.PagedDocument("doc-"+name, "converted text for "+name)
		if err := dom.Encode(w, doc); err != nil {
			t.Errorf("encode result: %v", err)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newRunner(t *testing.T, serverURL string, opts ...testsupport.ConfigOption) (*transcribe.Runner, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	client := docproc.NewClient(docproc.Config{
		BaseURL:      serverURL,
		Model:        cfg.Service.Model,
		PollInterval: time.Millisecond,
	}, docproc.WithSleeper(func(time.Duration) {}))
	return transcribe.New(cfg, client), cfg.Paths.OutputDir
}

func writeInputs(t *testing.T, names ...string) []string {
	t.Helper()

	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		testsupport.WriteFile(t, paths[i], []byte("content of "+name))
	}
	return paths
}

func TestRunConvertsBatch(t *testing.T) {
	server := newConvertServer(t, nil)
	runner, outputDir := newRunner(t, server.URL)
	inputs := writeInputs(t, "alpha.pdf", "beta.pdf")

	summary, err := runner.Run(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Succeeded != 2 || summary.Failed != 0 || summary.Degraded != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	for i, name := range []string{"alpha", "beta"} {
		artifact := filepath.Join(outputDir, name+".json")
		if summary.Results[i].Artifact != artifact {
			t.Fatalf("artifact path = %q, want %q", summary.Results[i].Artifact, artifact)
		}
		doc, readErr := dom.ReadFile(artifact)
		if readErr != nil {
			t.Fatal(readErr)
		}
		if doc.ID != "doc-"+name {
			t.Fatalf("artifact id = %q", doc.ID)
		}
	}
}

func TestRunStrictModeAbortsOnFirstFailure(t *testing.T) {
	var submissions atomic.Int32
	server := newConvertServer(t, &submissions)
	runner, _ := newRunner(t, server.URL)
	inputs := writeInputs(t, "alpha.pdf", "bad.pdf", "gamma.pdf")

	summary, err := runner.Run(context.Background(), inputs)
	if err == nil {
		t.Fatal("expected strict mode to surface the failure")
	}
	if len(summary.Results) != 2 {
		t.Fatalf("expected 2 attempted files, got %d", len(summary.Results))
	}
	if got := submissions.Load(); got != 2 {
		t.Fatalf("remaining file must not be submitted, saw %d submissions", got)
	}
	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunContinueOnFailureSynthesizesPlaceholder(t *testing.T) {
	server := newConvertServer(t, nil)
	runner, outputDir := newRunner(t, server.URL, testsupport.WithContinueOnFailure(true))
	inputs := writeInputs(t, "alpha.pdf", "bad.pdf", "gamma.pdf")

	summary, err := runner.Run(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Succeeded != 2 || summary.Degraded != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	degraded := summary.Results[1]
	if !degraded.Degraded {
		t.Fatal("second file should be degraded")
	}
	doc, err := dom.ReadFile(filepath.Join(outputDir, "bad.json"))
	if err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(inputs[1])
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != dom.ContentID(raw) {
		t.Fatalf("placeholder id must address the input bytes, got %q", doc.ID)
	}
	if doc.Metadata.String(dom.MetaTranscriptionStatus) != dom.StatusFailed {
		t.Fatalf("transcription status = %q", doc.Metadata.String(dom.MetaTranscriptionStatus))
	}
	if got := len(doc.Group(dom.GroupPages)); got != 1 {
		t.Fatalf("placeholder must carry one page chunk, got %d", got)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	server := newConvertServer(t, nil)
	cfg := testsupport.NewConfig(t, testsupport.WithContinueOnFailure(true))
	store := testsupport.MustOpenHistory(t, cfg)
	client := docproc.NewClient(docproc.Config{
		BaseURL:      server.URL,
		Model:        cfg.Service.Model,
		PollInterval: time.Millisecond,
	}, docproc.WithSleeper(func(time.Duration) {}))
	runner := transcribe.New(cfg, client, transcribe.WithHistory(store))

	inputs := writeInputs(t, "alpha.pdf", "bad.pdf")
	if _, err := runner.Run(context.Background(), inputs); err != nil {
		t.Fatal(err)
	}

	records, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(records))
	}

	byInput := make(map[string]*history.Record, len(records))
	for _, rec := range records {
		byInput[filepath.Base(rec.InputPath)] = rec
	}
	alpha, ok := byInput["alpha.pdf"]
	if !ok || alpha.Status != history.StatusSucceeded {
		t.Fatalf("alpha record = %+v", alpha)
	}
	if alpha.JobID != "job-alpha" {
		t.Fatalf("alpha job id = %q", alpha.JobID)
	}
	bad, ok := byInput["bad.pdf"]
	if !ok || bad.Status != history.StatusDegraded {
		t.Fatalf("bad record = %+v", bad)
	}
	if bad.ErrorMessage == "" {
		t.Fatal("degraded record must keep the failure message")
	}
}

func TestRunRejectsEmptyBatch(t *testing.T) {
	server := newConvertServer(t, nil)
	runner, _ := newRunner(t, server.URL)

	if _, err := runner.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty batch")
	}
}

func TestRunMissingInputDegradesToFailed(t *testing.T) {
	server := newConvertServer(t, nil)
	runner, _ := newRunner(t, server.URL, testsupport.WithContinueOnFailure(true))

	missing := filepath.Join(t.TempDir(), "nope.pdf")
	summary, err := runner.Run(context.Background(), []string{missing})
	if err != nil {
		t.Fatal(err)
	}
	// The input bytes are unreadable, so no placeholder can be synthesized.
	if summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Results[0].Err == nil {
		t.Fatal("missing input must surface an error in its result")
	}
}
