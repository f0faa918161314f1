// Package docproc implements the client side of the asynchronous document
// processing protocol: one generic submit/poll/fetch state machine shared by
// the transcription, chunking, and summarization workflows.
package docproc
