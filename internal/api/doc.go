// Package api defines wire-format types and converters for the HTTP API.
// It translates sessions, events, artifacts, and log entries into
// transport-friendly DTOs so clients can render them without coupling to
// internal types.
//
// # Key Types
//
// Session: a session snapshot with per-stage records in pipeline order.
//
// Event: one orchestrator state change, optionally carrying the session.
//
// Artifact: stored stage output described item by item. Payloads are only
// included when requested.
//
// ErrorResponse: an error body carrying the error kind and, for validation
// failures, the missing and invalid selection fields.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (phase, stage, status) are
// exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
// StatusFor maps the services error kinds onto HTTP status codes so every
// handler reports failures the same way.
package api
