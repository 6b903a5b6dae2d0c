// Package services defines shared utilities consumed by the orchestrator, the
// provider gateway, and the outer surfaces (CLI, HTTP API).
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap and Details helpers that keep the
//     error taxonomy (validation, provider, concurrent operation, cancelled)
//     uniform across packages.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// classification, observability) stays uniform across the pipeline.
package services
