// Package transcription implements an HTTP pipeline.Transcriber: it
// encodes a chunk's samples as WAV, posts multipart form data, retries
// transient failures with exponential backoff, and bounds concurrency
// with a semaphore.
package transcription 