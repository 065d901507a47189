// Package pipeline implements the continuous transcription pipeline: a
// staged, bounded-channel dataflow that turns captured audio frames into
// delivered text.
//
// Five stages run concurrently, each the sole owner of one goroutine:
// an AudioSource producer, a VAD classifier, an adaptive Chunker, a
// Transcriber adapter, and a Sink adapter. Stages are connected by typed,
// bounded FIFO channels; a stage never touches another stage's state.
package pipeline
