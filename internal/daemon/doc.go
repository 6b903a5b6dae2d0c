// Package daemon coordinates the long-running reelforged process.
//
// It wires configuration, the SQLite store, the provider gateway, and the
// orchestrator into a single lifecycle with flock-based locking to prevent
// multiple instances. On start it reloads every persisted session, runs the
// preflight checks, and serves the HTTP API. Control operations requested
// over HTTP run on the daemon's context so a client disconnect never cancels
// a stage; the session's cancel endpoint does.
//
// Keep orchestration logic in the orchestrator package. The daemon focuses on
// startup, shutdown, and transport.
package daemon
