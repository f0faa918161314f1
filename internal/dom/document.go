package dom

import (
	"errors"
	"fmt"
)

// GroupPages is the chunk group every transcription artifact carries, one
// chunk per page. Degraded artifacts use the same group so consumers never
// need a structural special case for failures.
const GroupPages = "pages"

// Common metadata keys shared across workflows.
const (
	MetaFilename            = "filename"
	MetaDocumentSHA256      = "document_sha256"
	MetaSizeBytes           = "size_bytes"
	MetaTranscriptionStatus = "transcription_status"
	MetaPageNumber          = "page_number"
	MetaFailure             = "failure"
	MetaSourceDocuments     = "source_documents"
)

// StatusFailed marks an artifact produced by degradation rather than by a
// successful job.
const StatusFailed = "failed"

// Document is one logical unit of processed content.
type Document struct {
	ID                string              `json:"id"`
	Content           string              `json:"content,omitempty"`
	Metadata          *Metadata           `json:"metadata,omitempty"`
	Chunks            map[string][]*Chunk `json:"chunks,omitempty"`
	ContentChunkGroup string              `json:"content_chunk_group,omitempty"`
}

// Chunk is one addressable sub-unit of a document, usually a page.
type Chunk struct {
	ID          string    `json:"id"`
	Parent      string    `json:"parent"`
	Start       *int64    `json:"start,omitempty"`
	Length      *int64    `json:"length,omitempty"`
	Content     string    `json:"content"`
	Metadata    *Metadata `json:"metadata,omitempty"`
	Annotations *Metadata `json:"annotations,omitempty"`
}

// ChunkID builds the canonical chunk identifier: "{parent}/{group}@{index}".
// The format is stable under re-serialization and encodes lineage.
func ChunkID(parent, group string, index int) string {
	return fmt.Sprintf("%s/%s@%d", parent, group, index)
}

// New returns a document with the given identifier and empty metadata.
func New(id string) *Document {
	return &Document{
		ID:       id,
		Metadata: NewMetadata(),
		Chunks:   make(map[string][]*Chunk),
	}
}

// Group returns the named chunk group, or nil when absent.
func (d *Document) Group(name string) []*Chunk {
	if d == nil || d.Chunks == nil {
		return nil
	}
	return d.Chunks[name]
}

// SetGroup installs chunks as the named group, assigning canonical chunk IDs
// and parent back-references. It replaces the whole group value.
func (d *Document) SetGroup(name string, chunks []*Chunk) {
	for i, chunk := range chunks {
		chunk.ID = ChunkID(d.ID, name, i)
		chunk.Parent = d.ID
	}
	if d.Chunks == nil {
		d.Chunks = make(map[string][]*Chunk)
	}
	d.Chunks[name] = chunks
}

// ContentGroup resolves which chunk group holds the authoritative content:
// the explicit content_chunk_group when set, otherwise "pages" when present.
func (d *Document) ContentGroup() string {
	if d == nil {
		return ""
	}
	if d.ContentChunkGroup != "" {
		return d.ContentChunkGroup
	}
	if _, ok := d.Chunks[GroupPages]; ok {
		return GroupPages
	}
	return ""
}

// Validate checks the structural invariants consumers rely on: a non-empty
// id and, per chunk group, contiguous canonical chunk IDs with parent
// back-references.
func (d *Document) Validate() error {
	if d == nil {
		return errors.New("document: nil")
	}
	if d.ID == "" {
		return errors.New("document: missing id")
	}
	for group, chunks := range d.Chunks {
		for i, chunk := range chunks {
			if chunk == nil {
				return fmt.Errorf("document %s: group %q chunk %d is nil", d.ID, group, i)
			}
			want := ChunkID(d.ID, group, i)
			if chunk.ID != want {
				return fmt.Errorf("document %s: group %q chunk %d has id %q, want %q", d.ID, group, i, chunk.ID, want)
			}
			if chunk.Parent != d.ID {
				return fmt.Errorf("document %s: group %q chunk %d has parent %q", d.ID, group, i, chunk.Parent)
			}
		}
	}
	return nil
}
