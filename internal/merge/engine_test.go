package merge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"folio/internal/dom"
	"folio/internal/services"
	"folio/internal/services/textgen"
)

// recordingGenerator is a test double that records every reconciliation
// request in call order.
type recordingGenerator struct {
	calls   []string
	options []map[string]any
	fail    int // 1-based call number to fail on, 0 = never
}

func (g *recordingGenerator) Generate(ctx context.Context, system string, messages []textgen.Message, options map[string]any) (string, error) {
	g.calls = append(g.calls, messages[0].Content)
	g.options = append(g.options, options)
	if g.fail > 0 && len(g.calls) == g.fail {
		return "", errors.New("generation failed")
	}
	return fmt.Sprintf("merged page %d", len(g.calls)), nil
}

func sourceDoc(id string, pages ...string) *dom.Document {
	doc := dom.New(id)
	chunks := make([]*dom.Chunk, len(pages))
	for i, content := range pages {
		chunks[i] = &dom.Chunk{
			Content:  content,
			Metadata: dom.MetadataFromPairs(dom.MetaPageNumber, i+1),
		}
	}
	doc.SetGroup(dom.GroupPages, chunks)
	return doc
}

func TestMergeReconcilesInIndexOrder(t *testing.T) {
	gen := &recordingGenerator{}
	engine := New(gen)

	a := sourceDoc("doc-a", "a page one", "a page two", "a page three")
	b := sourceDoc("doc-b", "b page one", "b page two", "b page three")

	merged, err := engine.Merge(context.Background(), []*dom.Document{a, b})
	if err != nil {
		t.Fatal(err)
	}

	if len(gen.calls) != 3 {
		t.Fatalf("expected 3 reconciliation calls, got %d", len(gen.calls))
	}
	for i, call := range gen.calls {
		if !strings.Contains(call, fmt.Sprintf("Page %d has 2 candidate", i+1)) {
			t.Fatalf("call %d out of order:\n%s", i, call)
		}
		if !strings.Contains(call, "a page") || !strings.Contains(call, "b page") {
			t.Fatalf("call %d missing source content:\n%s", i, call)
		}
	}

	chunks := merged.Group(dom.GroupPages)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 merged chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "merged page 1" || chunks[2].Content != "merged page 3" {
		t.Fatalf("merged contents out of order: %q, %q", chunks[0].Content, chunks[2].Content)
	}
	if merged.ContentChunkGroup != dom.GroupPages {
		t.Fatalf("content_chunk_group not set: %q", merged.ContentChunkGroup)
	}
	if err := merged.Validate(); err != nil {
		t.Fatalf("merged document failed validation: %v", err)
	}
}

func TestMergeUsesLowTemperature(t *testing.T) {
	gen := &recordingGenerator{}
	engine := New(gen)

	_, err := engine.Merge(context.Background(), []*dom.Document{
		sourceDoc("a", "x"), sourceDoc("b", "y"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if gen.options[0]["temperature"] != reconcileTemperature {
		t.Fatalf("temperature mismatch: %v", gen.options[0])
	}
}

func TestMergeAlignmentFailsBeforeAnyCall(t *testing.T) {
	gen := &recordingGenerator{}
	engine := New(gen)

	docs := []*dom.Document{
		sourceDoc("a", "1", "2", "3"),
		sourceDoc("b", "1", "2", "3"),
		sourceDoc("c", "1", "2", "3", "4"),
	}
	_, err := engine.Merge(context.Background(), docs)
	if !errors.Is(err, services.ErrAlignment) {
		t.Fatalf("expected alignment error, got %v", err)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("alignment failure must precede network calls, saw %d", len(gen.calls))
	}
}

func TestMergeRequiresTwoDocuments(t *testing.T) {
	engine := New(&recordingGenerator{})
	if _, err := engine.Merge(context.Background(), []*dom.Document{sourceDoc("a", "1")}); !errors.Is(err, services.ErrAlignment) {
		t.Fatalf("expected alignment error, got %v", err)
	}
}

func TestMergeMissingGroupIsAlignmentError(t *testing.T) {
	engine := New(&recordingGenerator{}, WithChunkGroup("rechunked"))
	_, err := engine.Merge(context.Background(), []*dom.Document{
		sourceDoc("a", "1"), sourceDoc("b", "1"),
	})
	if !errors.Is(err, services.ErrAlignment) {
		t.Fatalf("expected alignment error for missing group, got %v", err)
	}
}

func TestMergePageFailureAbortsWholeMerge(t *testing.T) {
	gen := &recordingGenerator{fail: 2}
	engine := New(gen)

	merged, err := engine.Merge(context.Background(), []*dom.Document{
		sourceDoc("a", "1", "2", "3"),
		sourceDoc("b", "1", "2", "3"),
	})
	if err == nil {
		t.Fatal("expected merge failure")
	}
	if merged != nil {
		t.Fatal("partial merged document must never be returned")
	}
	if len(gen.calls) != 2 {
		t.Fatalf("merge should stop at the failing page, saw %d calls", len(gen.calls))
	}
}

func TestMergeConflictTagging(t *testing.T) {
	a := sourceDoc("a", "x")
	b := sourceDoc("b", "x")
	a.Group(dom.GroupPages)[0].Metadata = dom.MetadataFromPairs("page_number", 5, "lang", "en")
	b.Group(dom.GroupPages)[0].Metadata = dom.MetadataFromPairs("page_number", 7, "lang", "en")

	engine := New(&recordingGenerator{})
	merged, err := engine.Merge(context.Background(), []*dom.Document{a, b})
	if err != nil {
		t.Fatal(err)
	}

	meta := merged.Group(dom.GroupPages)[0].Metadata
	if got, _ := meta.Get("page_number"); !dom.ValuesEqual(got, 5) {
		t.Fatalf("canonical value mismatch: %v", got)
	}
	if got := meta.String("page_number_conflicts"); got != "ALT: 7" {
		t.Fatalf("conflict companion mismatch: %q", got)
	}
	// Agreement collapses without a companion key.
	if meta.Has("lang_conflicts") {
		t.Fatal("agreeing values must not produce a conflicts key")
	}
	if meta.String("lang") != "en" {
		t.Fatalf("agreed value mismatch: %q", meta.String("lang"))
	}
}

func TestMergeDocumentLevelMetadata(t *testing.T) {
	a := sourceDoc("a", "x")
	b := sourceDoc("b", "x")
	c := sourceDoc("c", "x")
	a.Metadata = dom.MetadataFromPairs("filename", "scan.pdf", "engine", "alpha")
	b.Metadata = dom.MetadataFromPairs("filename", "scan.pdf", "engine", "beta")
	c.Metadata = dom.MetadataFromPairs("filename", "scan.pdf", "engine", "beta")

	engine := New(&recordingGenerator{})
	merged, err := engine.Merge(context.Background(), []*dom.Document{a, b, c})
	if err != nil {
		t.Fatal(err)
	}

	if merged.Metadata.String("filename") != "scan.pdf" {
		t.Fatalf("agreed key mismatch: %q", merged.Metadata.String("filename"))
	}
	if merged.Metadata.Has("filename_conflicts") {
		t.Fatal("agreeing filename must not produce conflicts")
	}
	if merged.Metadata.String("engine") != "alpha" {
		t.Fatalf("canonical engine mismatch: %q", merged.Metadata.String("engine"))
	}
	// Distinct disagreeing values collapse: beta appears once.
	if got := merged.Metadata.String("engine_conflicts"); got != "ALT: beta" {
		t.Fatalf("engine conflicts mismatch: %q", got)
	}
}

func TestMergedIDStable(t *testing.T) {
	engine := New(&recordingGenerator{})
	docs := []*dom.Document{sourceDoc("a", "x"), sourceDoc("b", "y")}
	first, err := engine.Merge(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(&recordingGenerator{}).Merge(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("merged id not stable: %s vs %s", first.ID, second.ID)
	}
}
