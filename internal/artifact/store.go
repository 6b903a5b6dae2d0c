package artifact

import (
	"context"

	"reelforge/internal/session"
)

// Store persists artifacts keyed by session, stage, and version.
type Store interface {
	// Put stores art under the given key. Existing versions are never
	// overwritten; a second Put for the same key returns ErrVersionExists.
	Put(ctx context.Context, sessionID string, stage session.StageKind, version int, art Artifact) error
	// Get returns the requested version, or the latest when version is 0.
	Get(ctx context.Context, sessionID string, stage session.StageKind, version int) (Artifact, error)
	// Versions lists stored versions in ascending order.
	Versions(ctx context.Context, sessionID string, stage session.StageKind) ([]int, error)
	// Clear removes every artifact owned by the session.
	Clear(ctx context.Context, sessionID string) error
}
