package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"reelforge/internal/services"
	"reelforge/internal/session"
)

// SaveSession writes the snapshot, replacing any earlier one for the same
// session.
func (s *Store) SaveSession(ctx context.Context, snap session.Snapshot) error {
	if snap.ID == "" {
		return errors.New("save session: id is required")
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", snap.ID, err)
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (id, title, phase, snapshot_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    phase = excluded.phase,
    snapshot_json = excluded.snapshot_json,
    updated_at = excluded.updated_at`,
			snap.ID, nullableString(snap.Title), string(snap.Phase), string(payload),
			formatTime(snap.CreatedAt), formatTime(snap.UpdatedAt),
		)
		return err
	})
}

// DeleteSession removes the session record. Artifacts are removed
// separately through Clear.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
		return err
	})
}

// GetSession returns the stored snapshot for id.
func (s *Store) GetSession(ctx context.Context, id string) (session.Snapshot, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT snapshot_json FROM sessions WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Snapshot{}, services.Wrap(services.ErrNotFound, "", "load session",
			fmt.Sprintf("session %q not found", id), nil)
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("load session %s: %w", id, err)
	}
	return decodeSnapshot(id, raw)
}

// LoadSessions returns every stored snapshot, oldest first.
func (s *Store) LoadSessions(ctx context.Context) ([]session.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, snapshot_json FROM sessions ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []session.Snapshot
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		snap, err := decodeSnapshot(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// CountByPhase reports how many stored sessions sit in each phase.
func (s *Store) CountByPhase(ctx context.Context) (map[session.Phase]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT phase, COUNT(1) FROM sessions GROUP BY phase")
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	defer rows.Close()

	counts := make(map[session.Phase]int)
	for rows.Next() {
		var (
			phase string
			n     int
		)
		if err := rows.Scan(&phase, &n); err != nil {
			return nil, fmt.Errorf("scan phase count: %w", err)
		}
		counts[session.Phase(phase)] = n
	}
	return counts, rows.Err()
}

func decodeSnapshot(id, raw string) (session.Snapshot, error) {
	var snap session.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return snap, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
