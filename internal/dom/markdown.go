package dom

import (
	"fmt"
	"strings"
)

// pageSeparator delimits flattened chunks in Markdown output.
const pageSeparator = "\n\n---\n\n"

// RenderMarkdown flattens the document into Markdown: the top-level content
// followed by every chunk of the authoritative group in index order, each
// prefixed with an HTML-comment metadata block so the output stays valid
// Markdown while remaining traceable back to the source artifact.
func RenderMarkdown(doc *Document) string {
	var b strings.Builder
	writeMetadataComment(&b, "document "+doc.ID, doc.Metadata)

	if content := strings.TrimSpace(doc.Content); content != "" {
		b.WriteString(content)
		b.WriteString("\n")
	}

	group := doc.ContentGroup()
	if group == "" {
		return b.String()
	}

	for i, chunk := range doc.Group(group) {
		if i > 0 || strings.TrimSpace(doc.Content) != "" {
			b.WriteString(pageSeparator)
		} else {
			b.WriteString("\n")
		}
		writeMetadataComment(&b, chunk.ID, chunk.Metadata)
		b.WriteString(strings.TrimSpace(chunk.Content))
		b.WriteString("\n")
	}
	return b.String()
}

func writeMetadataComment(b *strings.Builder, label string, meta *Metadata) {
	b.WriteString("<!-- ")
	b.WriteString(label)
	if meta.Len() > 0 {
		b.WriteString("\n")
		for _, key := range meta.Keys() {
			value, _ := meta.Get(key)
			fmt.Fprintf(b, "  %s: %s\n", key, commentSafe(FormatValue(value)))
		}
	} else {
		b.WriteString(" ")
	}
	b.WriteString("-->\n")
}

// commentSafe keeps metadata values from terminating the enclosing HTML
// comment early.
func commentSafe(value string) string {
	return strings.ReplaceAll(value, "--", "\\-\\-")
}
