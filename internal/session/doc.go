// Package session models one generation attempt: the script and selections a
// user supplied, the phase the orchestrator has reached, and one StageRecord
// per generation stage.
//
// Sessions are owned by the orchestrator. Everything handed to collaborators
// is a Snapshot, a deep copy that can be read without coordination. Treat this
// package as the single source of truth for phase, stage, and status enums;
// when a stage or phase is added, extend the ordered lists here first.
package session
