// Command folio drives document transcription, chunking, summarization,
// and merge jobs against a document processing service.
package main
