// Package store persists sessions and their artifacts in SQLite.
//
// A Store satisfies artifact.Store and the orchestrator's journal, so the
// daemon can reload every session and its stored outputs after a restart.
// The schema is versioned; a database written by a different version is
// rejected rather than migrated.
package store
