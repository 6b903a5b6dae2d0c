// Package notifications delivers ntfy push notifications for session
// milestones.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers can notify unconditionally. Forward adapts a Service into an
// orchestrator subscriber that sends completion and failure notices without
// blocking the goroutine that changed session state.
package notifications
