// Package merge reconciles N independent transcriptions of the same
// paginated document into one composite document with conflict-annotated
// metadata.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"folio/internal/dom"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/services/textgen"
)

// Generator is the synchronous text-generation call used once per page.
type Generator interface {
	Generate(ctx context.Context, system string, messages []textgen.Message, options map[string]any) (string, error)
}

// Engine merges documents page by page, strictly in index order, one
// in-flight request at a time.
type Engine struct {
	gen        Generator
	chunkGroup string
	logger     *slog.Logger
}

// Option customizes the engine.
type Option func(*Engine)

// WithChunkGroup overrides the chunk group being reconciled (default
// "pages").
func WithChunkGroup(group string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(group) != "" {
			e.chunkGroup = strings.TrimSpace(group)
		}
	}
}

// WithLogger attaches a logger for per-page progress records.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New constructs a merge engine over the given generator.
func New(gen Generator, opts ...Option) *Engine {
	e := &Engine{
		gen:        gen,
		chunkGroup: dom.GroupPages,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Merge reconciles the documents into one composite document. Structural
// incompatibility fails with an alignment error before any network call; a
// failure reconciling any single page aborts the entire merge, so a
// partially merged document is never produced.
func (e *Engine) Merge(ctx context.Context, docs []*dom.Document) (*dom.Document, error) {
	pageCount, err := e.align(docs)
	if err != nil {
		return nil, err
	}

	merged := dom.New(mergedID(docs))
	merged.ContentChunkGroup = e.chunkGroup

	docMetas := make([]*dom.Metadata, len(docs))
	sourceIDs := make([]any, len(docs))
	for i, doc := range docs {
		docMetas[i] = doc.Metadata
		sourceIDs[i] = doc.ID
	}
	merged.Metadata = reconcileMetadata(docMetas)
	merged.Metadata.Set(dom.MetaSourceDocuments, sourceIDs)

	chunks := make([]*dom.Chunk, 0, pageCount)
	for page := 0; page < pageCount; page++ {
		content, err := e.reconcilePage(ctx, docs, page)
		if err != nil {
			return nil, fmt.Errorf("merge page %d: %w", page, err)
		}

		chunkMetas := make([]*dom.Metadata, len(docs))
		for i, doc := range docs {
			chunkMetas[i] = doc.Group(e.chunkGroup)[page].Metadata
		}
		chunks = append(chunks, &dom.Chunk{
			Content:  content,
			Metadata: reconcileMetadata(chunkMetas),
		})

		e.logger.Debug("page reconciled",
			slog.String(logging.FieldComponent, "merge"),
			slog.Int(logging.FieldPage, page),
		)
	}
	merged.SetGroup(e.chunkGroup, chunks)
	return merged, nil
}

// align validates the merge preconditions and returns the shared page count.
func (e *Engine) align(docs []*dom.Document) (int, error) {
	if len(docs) < 2 {
		return 0, services.Wrap(services.ErrAlignment, "merge", "align",
			fmt.Sprintf("need at least 2 documents, got %d", len(docs)), nil)
	}
	counts := make([]int, len(docs))
	for i, doc := range docs {
		group := doc.Group(e.chunkGroup)
		if group == nil {
			return 0, services.Wrap(services.ErrAlignment, "merge", "align",
				fmt.Sprintf("document %s lacks chunk group %q", doc.ID, e.chunkGroup), nil)
		}
		counts[i] = len(group)
	}
	for _, count := range counts[1:] {
		if count != counts[0] {
			return 0, services.Wrap(services.ErrAlignment, "merge", "align",
				fmt.Sprintf("chunk counts differ across documents: %v", counts), nil)
		}
	}
	return counts[0], nil
}

func (e *Engine) reconcilePage(ctx context.Context, docs []*dom.Document, page int) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Page %d has %d candidate transcriptions.\n", page+1, len(docs))
	for i, doc := range docs {
		fmt.Fprintf(&b, "\n--- Source %d ---\n%s\n", i+1, doc.Group(e.chunkGroup)[page].Content)
	}

	return e.gen.Generate(ctx, reconcilePrompt,
		[]textgen.Message{{Role: "user", Content: b.String()}},
		map[string]any{"temperature": reconcileTemperature},
	)
}

// mergedID derives a stable content-addressed identifier from the source
// document ids, so re-merging the same inputs yields the same artifact id.
func mergedID(docs []*dom.Document) string {
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	return dom.ContentID([]byte("merge:" + strings.Join(ids, "+")))
}
