// Package observability provides structured logging and metrics for the
// Hydra router.
//
// This package implements:
//   - zap logger construction from level/format settings, with optional
//     size-rotated file output
//   - Prometheus collectors for routing decisions, fallbacks and the model
//     catalog
//   - HTTP request instrumentation middleware
package observability
