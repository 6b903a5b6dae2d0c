// Package artifact defines the provider output the orchestrator stores per
// stage and the Store contract that keeps every version of it.
//
// Stores are keyed by (session, stage, version). Versions are write-once: a
// regeneration always lands under a new version, so a downstream stage that
// consumed an older version can still be traced. Clear is the only deletion
// path and is reserved for session reset and destruction.
//
// MemoryStore backs tests and single-process embeddings; the SQLite store in
// internal/store backs the CLI and daemon.
package artifact
