// Package derive runs chunking and summarization jobs over existing
// document artifacts.
package derive

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"folio/internal/config"
	"folio/internal/dom"
	"folio/internal/history"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/services/docproc"
)

// OutputMode selects where a derived document lands.
type OutputMode int

const (
	// WriteCopy writes the derived document next to other artifacts in the
	// output directory, leaving the input untouched.
	WriteCopy OutputMode = iota
	// OverwriteInPlace folds the derived chunk groups back into the input
	// document and rewrites it atomically.
	OverwriteInPlace
)

// Runner executes derivation jobs one document at a time.
type Runner struct {
	cfg    *config.Config
	client *docproc.Client
	store  *history.Store
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

// WithLogger attaches a logger for progress records.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a runner over the given client.
func New(cfg *config.Config, client *docproc.Client, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		client: client,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run submits the document at inputPath for the given operation and writes
// the derived result per the output mode. It returns the artifact path.
func (r *Runner) Run(ctx context.Context, op docproc.Operation, inputPath string, mode OutputMode) (string, error) {
	if op != docproc.OpChunk && op != docproc.OpSummarize {
		return "", services.Wrap(services.ErrSubmission, "derive", "run",
			fmt.Sprintf("unsupported operation %q", op), nil)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithStage(ctx, string(op))
	ctx = services.WithFile(ctx, inputPath)

	logger := logging.WithContext(ctx, r.logger).With(
		slog.String(logging.FieldComponent, "derive"),
	)

	source, err := dom.ReadFile(inputPath)
	if err != nil {
		return "", services.Wrap(services.ErrIO, "derive", "read", inputPath, err)
	}

	var record *history.Record
	if r.store != nil {
		record, err = r.store.Begin(ctx, historyKind(op), inputPath)
		if err != nil {
			return "", err
		}
	}

	artifact, err := r.derive(ctx, op, inputPath, source, mode, record, logger)
	if err != nil {
		r.finish(ctx, record, history.StatusFailed, "", err.Error())
		return "", err
	}
	r.finish(ctx, record, history.StatusSucceeded, artifact, "")
	return artifact, nil
}

func (r *Runner) derive(ctx context.Context, op docproc.Operation, inputPath string, source *dom.Document, mode OutputMode, record *history.Record, logger *slog.Logger) (string, error) {
	job, err := r.client.SubmitDocument(ctx, op, source, nil)
	if err != nil {
		return "", err
	}
	if r.store != nil && record != nil {
		_ = r.store.SetJobID(ctx, record.ID, job.ID())
	}
	logger.Info("job submitted", slog.String(logging.FieldJobID, job.ID()))

	derived, err := job.Await(ctx, func(status docproc.Status) {
		logger.Debug("derivation in progress",
			slog.String(logging.FieldJobID, job.ID()),
			slog.Int("pages_converted", status.PagesConverted),
			slog.Int("pages_total", status.PagesTotal),
		)
	})
	if err != nil {
		return "", err
	}

	switch mode {
	case OverwriteInPlace:
		return inputPath, r.fold(inputPath, source, derived)
	default:
		if err := r.cfg.EnsureDirectories(); err != nil {
			return "", services.Wrap(services.ErrIO, "derive", "write", "ensure output directory", err)
		}
		path := r.artifactPath(inputPath, op)
		if err := dom.WriteFile(path, derived); err != nil {
			return "", services.Wrap(services.ErrIO, "derive", "write", path, err)
		}
		return path, nil
	}
}

// fold copies the derived chunk groups into the source document and rewrites
// the input file atomically, so readers never observe a half-written doc.
func (r *Runner) fold(inputPath string, source, derived *dom.Document) error {
	for group, chunks := range derived.Chunks {
		source.SetGroup(group, chunks)
	}
	if derived.ContentChunkGroup != "" {
		source.ContentChunkGroup = derived.ContentChunkGroup
	}
	if err := dom.WriteFile(inputPath, source); err != nil {
		return services.Wrap(services.ErrIO, "derive", "write", inputPath, err)
	}
	return nil
}

func (r *Runner) artifactPath(inputPath string, op docproc.Operation) string {
	base := filepath.Base(inputPath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(r.cfg.Paths.OutputDir, fmt.Sprintf("%s.%s.json", base, op))
}

func historyKind(op docproc.Operation) history.Kind {
	if op == docproc.OpSummarize {
		return history.KindSummarize
	}
	return history.KindChunk
}

func (r *Runner) finish(ctx context.Context, record *history.Record, status history.Status, artifact, message string) {
	if r.store == nil || record == nil {
		return
	}
	if err := r.store.Finish(ctx, record.ID, status, artifact, message); err != nil {
		r.logger.Warn("failed to record run outcome", slog.String("error", err.Error()))
	}
}
