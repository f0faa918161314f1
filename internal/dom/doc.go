// Package dom defines the document object model shared by every folio
// workflow: a document with content, open metadata, and named chunk groups.
// Documents are the interchange format between the conversion service, the
// merge engine, and local storage; once written to disk they are never
// mutated in place outside the explicit inline output mode.
package dom
