// Package server implements the admin HTTP endpoints exposed alongside a
// running pipeline: health, sanitized configuration, run status, and
// Prometheus metrics.
package server
