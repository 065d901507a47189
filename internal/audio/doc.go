// Package audio provides WAV encode/decode helpers and the two concrete
// pipeline.AudioSource implementations: a real-time-paced WAV file replay
// source and a sequence-numbered PCM-over-UDP source.
package audio 