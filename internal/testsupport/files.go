package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"folio/internal/dom"
)

// WriteFile fills the target path with the given content, creating parent
// directories as needed.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteDocument serializes a document to the target path for use as a test
// fixture.
func WriteDocument(t testing.TB, path string, doc *dom.Document) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := dom.WriteFile(path, doc); err != nil {
		t.Fatalf("write document %s: %v", path, err)
	}
}

// PagedDocument builds a document with one chunk per page content string.
func PagedDocument(id string, pages ...string) *dom.Document {
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
