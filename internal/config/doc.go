// Package config provides YAML-based configuration loading and validation
// for the pipeline's source, transcription, sink, admin HTTP, and logging
// concerns, translating into pipeline.PipelineConfig and
// pipeline.TranscriberFilters for wiring.
package config
