package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"folio/internal/config"
	"folio/internal/degrade"
	"folio/internal/dom"
	"folio/internal/history"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/services/docproc"
)

// Runner executes conversion batches sequentially. In strict mode the first
// failure aborts the batch; with continue-on-failure enabled, failed files
// produce placeholder artifacts and the batch keeps going.
type Runner struct {
	cfg    *config.Config
	client *docproc.Client
	store  *history.Store
	synth  *degrade.Synthesizer
	logger *slog.Logger
}

// Option customizes the runner.
type Option func(*Runner)

// WithHistory attaches a ledger so every run is recorded.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithLogger attaches a logger for per-file progress records.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSynthesizer overrides the degradation synthesizer.
func WithSynthesizer(synth *degrade.Synthesizer) Option {
	return func(r *Runner) {
		if synth != nil {
			r.synth = synth
		}
	}
}

// New constructs a runner over the given client.
func New(cfg *config.Config, client *docproc.Client, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		client: client,
		synth:  degrade.New(cfg.Service.Model),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FileResult records the outcome for one input file.
type FileResult struct {
	Input    string
	Artifact string
	JobID    string
	Degraded bool
	Err      error
}

// Summary aggregates a batch.
type Summary struct {
	Results   []FileResult
	Succeeded int
	Degraded  int
	Failed    int
}

// Run converts each input in order. The returned summary covers every file
// attempted; in strict mode it may be shorter than the input list.
func (r *Runner) Run(ctx context.Context, inputs []string) (*Summary, error) {
	if len(inputs) == 0 {
		return nil, services.Wrap(services.ErrSubmission, "transcribe", "run", "no input files", nil)
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrIO, "transcribe", "run", "ensure output directory", err)
	}

	summary := &Summary{}
	for _, input := range inputs {
		result := r.runFile(ctx, input)
		summary.Results = append(summary.Results, result)
		switch {
		case result.Err == nil && result.Degraded:
			summary.Degraded++
		case result.Err == nil:
			summary.Succeeded++
		default:
			summary.Failed++
		}

		if result.Err != nil {
			if ctx.Err() != nil {
				return summary, result.Err
			}
			if !r.cfg.Jobs.ContinueOnFailure {
				return summary, fmt.Errorf("transcribe %s: %w", input, result.Err)
			}
		}
	}
	return summary, nil
}

func (r *Runner) runFile(ctx context.Context, input string) FileResult {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithStage(ctx, "transcribe")
	ctx = services.WithFile(ctx, input)

	logger := logging.WithContext(ctx, r.logger).With(
		slog.String(logging.FieldComponent, "transcribe"),
	)
	logger.Info("submitting file")

	result := FileResult{Input: input}
	var record *history.Record
	if r.store != nil {
		rec, err := r.store.Begin(ctx, history.KindTranscribe, input)
		if err != nil {
			result.Err = err
			return result
		}
		record = rec
	}

	doc, jobID, err := r.convert(ctx, input, logger)
	result.JobID = jobID
	if r.store != nil && record != nil && jobID != "" {
		_ = r.store.SetJobID(ctx, record.ID, jobID)
	}
	if err == nil {
		result.Artifact, err = r.writeArtifact(input, doc)
	}

	if err == nil {
		logger.Info("transcription complete", slog.String("artifact", result.Artifact))
		r.finish(ctx, record, history.StatusSucceeded, result.Artifact, "")
		return result
	}

	if ctx.Err() != nil || !r.cfg.Jobs.ContinueOnFailure || !services.Degradable(err) {
		result.Err = err
		r.finish(ctx, record, history.StatusFailed, "", err.Error())
		return result
	}

	logger.Warn("transcription failed, synthesizing placeholder", slog.String("error", err.Error()))
	placeholder, synthErr := r.synth.Synthesize(input, err)
	if synthErr != nil {
		result.Err = synthErr
		r.finish(ctx, record, history.StatusFailed, "", synthErr.Error())
		return result
	}
	result.Artifact, synthErr = r.writeArtifact(input, placeholder)
	if synthErr != nil {
		result.Err = synthErr
		r.finish(ctx, record, history.StatusFailed, "", synthErr.Error())
		return result
	}
	result.Degraded = true
	r.finish(ctx, record, history.StatusDegraded, result.Artifact, err.Error())
	return result
}

func (r *Runner) convert(ctx context.Context, input string, logger *slog.Logger) (*dom.Document, string, error) {
	job, err := r.client.SubmitFile(ctx, docproc.OpConvert, input)
	if err != nil {
		return nil, "", err
	}

	doc, err := job.Await(ctx, func(status docproc.Status) {
		logger.Debug("conversion in progress",
			slog.String(logging.FieldJobID, job.ID()),
			slog.Int("pages_converted", status.PagesConverted),
			slog.Int("pages_total", status.PagesTotal),
		)
	})
	return doc, job.ID(), err
}

// ArtifactPath returns where the converted document for an input file lands.
func (r *Runner) ArtifactPath(input string) string {
	base := filepath.Base(input)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(r.cfg.Paths.OutputDir, base+".json")
}

func (r *Runner) writeArtifact(input string, doc *dom.Document) (string, error) {
	path := r.ArtifactPath(input)
	if err := dom.WriteFile(path, doc); err != nil {
		return "", services.Wrap(services.ErrIO, "transcribe", "write", path, err)
	}
	return path, nil
}

func (r *Runner) finish(ctx context.Context, record *history.Record, status history.Status, artifact, message string) {
	if r.store == nil || record == nil {
		return
	}
	if err := r.store.Finish(ctx, record.ID, status, artifact, message); err != nil {
		r.logger.Warn("failed to record run outcome", slog.String("error", err.Error()))
	}
}
