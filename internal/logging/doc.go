// Package logging assembles structured slog loggers and formatting helpers used
// across reelforge.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so orchestrator code can tag log
// lines with session IDs, stages, and correlation IDs. A bounded StreamHub
// keeps recent log events for the daemon's API. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
