package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reelforge/internal/artifact"
	"reelforge/internal/session"
)

var _ artifact.Store = (*Store)(nil)

// Put implements artifact.Store.
func (s *Store) Put(ctx context.Context, sessionID string, stage session.StageKind, version int, art artifact.Artifact) error {
	if err := artifact.ValidateKey(sessionID, stage, version); err != nil {
		return err
	}
	created := art.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO artifacts (session_id, stage, version, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(session_id, stage, version) DO NOTHING`,
			sessionID, string(stage), version, formatTime(created),
		)
		if err != nil {
			return fmt.Errorf("insert artifact: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s/%s v%d", artifact.ErrVersionExists, sessionID, stage, version)
		}
		for i, item := range art.Items {
			meta, err := json.Marshal(item.Metadata)
			if err != nil {
				return fmt.Errorf("encode item %d metadata: %w", i, err)
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO artifact_items (session_id, stage, version, position, content_type, metadata_json, payload)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				sessionID, string(stage), version, i, item.ContentType, string(meta), item.Payload,
			); err != nil {
				return fmt.Errorf("insert item %d: %w", i, err)
			}
		}
		return nil
	})
}

// Get implements artifact.Store.
func (s *Store) Get(ctx context.Context, sessionID string, stage session.StageKind, version int) (artifact.Artifact, error) {
	if version == 0 {
		var latest sql.NullInt64
		if err := s.db.QueryRowContext(ctx,
			"SELECT MAX(version) FROM artifacts WHERE session_id = ? AND stage = ?",
			sessionID, string(stage),
		).Scan(&latest); err != nil {
			return artifact.Artifact{}, fmt.Errorf("find latest %s/%s: %w", sessionID, stage, err)
		}
		if !latest.Valid {
			return artifact.Artifact{}, fmt.Errorf("%w: %s/%s", artifact.ErrNotFound, sessionID, stage)
		}
		version = int(latest.Int64)
	}

	var createdRaw string
	err := s.db.QueryRowContext(ctx,
		"SELECT created_at FROM artifacts WHERE session_id = ? AND stage = ? AND version = ?",
		sessionID, string(stage), version,
	).Scan(&createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return artifact.Artifact{}, fmt.Errorf("%w: %s/%s v%d", artifact.ErrNotFound, sessionID, stage, version)
	}
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("read artifact %s/%s v%d: %w", sessionID, stage, version, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT content_type, metadata_json, payload FROM artifact_items
WHERE session_id = ? AND stage = ? AND version = ?
ORDER BY position`,
		sessionID, string(stage), version,
	)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("read items %s/%s v%d: %w", sessionID, stage, version, err)
	}
	defer rows.Close()

	art := artifact.Artifact{
		Ref:       session.ArtifactRef{SessionID: sessionID, Stage: stage, Version: version},
		CreatedAt: parseTime(createdRaw),
	}
	for rows.Next() {
		var (
			item artifact.Item
			meta sql.NullString
		)
		if err := rows.Scan(&item.ContentType, &meta, &item.Payload); err != nil {
			return artifact.Artifact{}, fmt.Errorf("scan item: %w", err)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &item.Metadata); err != nil {
				return artifact.Artifact{}, fmt.Errorf("decode item metadata: %w", err)
			}
		}
		art.Items = append(art.Items, item)
	}
	if err := rows.Err(); err != nil {
		return artifact.Artifact{}, err
	}
	return art, nil
}

// Versions implements artifact.Store.
func (s *Store) Versions(ctx context.Context, sessionID string, stage session.StageKind) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT version FROM artifacts WHERE session_id = ? AND stage = ? ORDER BY version",
		sessionID, string(stage),
	)
	if err != nil {
		return nil, fmt.Errorf("list versions %s/%s: %w", sessionID, stage, err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Clear implements artifact.Store.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM artifact_items WHERE session_id = ?", sessionID); err != nil {
			return fmt.Errorf("clear items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM artifacts WHERE session_id = ?", sessionID); err != nil {
			return fmt.Errorf("clear artifacts: %w", err)
		}
		return nil
	})
}

// Usage reports how many artifact versions and payload bytes a session
// holds.
func (s *Store) Usage(ctx context.Context, sessionID string) (versions int, bytes int64, err error) {
	err = s.db.QueryRowContext(ctx, `
SELECT
    (SELECT COUNT(1) FROM artifacts WHERE session_id = ?),
    COALESCE((SELECT SUM(LENGTH(payload)) FROM artifact_items WHERE session_id = ?), 0)`,
		sessionID, sessionID,
	).Scan(&versions, &bytes)
	if err != nil {
		return 0, 0, fmt.Errorf("artifact usage %s: %w", sessionID, err)
	}
	return versions, bytes, nil
}
