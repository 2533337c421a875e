// Package routing classifies prompts into model tiers for the Hydra gateway.
//
// This package provides:
//   - Signal extraction from raw prompt text (code, length, complexity markers)
//   - A saturating complexity score with preference adjustments
//   - Tier selection (FAST, QUALITY, CODE) with a tie-break toward latency
//   - Fallback resolution against a set of currently available models
//
// Everything here is pure and synchronous. A Classifier is immutable once
// built and safe for concurrent use.
package routing
