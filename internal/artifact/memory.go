package artifact

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"reelforge/internal/session"
)

type memoryKey struct {
	sessionID string
	stage     session.StageKind
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[memoryKey]map[int]Artifact
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[memoryKey]map[int]Artifact)}
}

// Put implements Store.
func (m *MemoryStore) Put(ctx context.Context, sessionID string, stage session.StageKind, version int, art Artifact) error {
	if err := ValidateKey(sessionID, stage, version); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey{sessionID: sessionID, stage: stage}
	versions := m.entries[key]
	if versions == nil {
		versions = make(map[int]Artifact)
		m.entries[key] = versions
	}
	if _, exists := versions[version]; exists {
		return fmt.Errorf("%w: %s/%s v%d", ErrVersionExists, sessionID, stage, version)
	}
	stored := art.Clone()
	stored.Ref = session.ArtifactRef{SessionID: sessionID, Stage: stage, Version: version}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	versions[version] = stored
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, sessionID string, stage session.StageKind, version int) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions := m.entries[memoryKey{sessionID: sessionID, stage: stage}]
	if len(versions) == 0 {
		return Artifact{}, fmt.Errorf("%w: %s/%s", ErrNotFound, sessionID, stage)
	}
	if version == 0 {
		for v := range versions {
			if v > version {
				version = v
			}
		}
	}
	art, ok := versions[version]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %s/%s v%d", ErrNotFound, sessionID, stage, version)
	}
	return art.Clone(), nil
}

// Versions implements Store.
func (m *MemoryStore) Versions(ctx context.Context, sessionID string, stage session.StageKind) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions := m.entries[memoryKey{sessionID: sessionID, stage: stage}]
	out := make([]int, 0, len(versions))
	for v := range versions {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if key.sessionID == sessionID {
			delete(m.entries, key)
		}
	}
	return nil
}
