// Package storetest holds the behavioural suite every artifact.Store
// implementation must pass.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"reelforge/internal/artifact"
	"reelforge/internal/services"
	"reelforge/internal/session"
)

// Run exercises store against the artifact.Store contract. newStore must
// return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) artifact.Store) {
	t.Helper()

	t.Run("GetLatestAndPinned", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustPut(t, store, "s1", session.StageImages, 1, []byte("v1"))
		mustPut(t, store, "s1", session.StageImages, 2, []byte("v2"))

		latest, err := store.Get(ctx, "s1", session.StageImages, 0)
		if err != nil {
			t.Fatalf("Get latest: %v", err)
		}
		if latest.Ref.Version != 2 || !bytes.Equal(latest.Items[0].Payload, []byte("v2")) {
			t.Fatalf("unexpected latest artifact: %+v", latest.Ref)
		}

		pinned, err := store.Get(ctx, "s1", session.StageImages, 1)
		if err != nil {
			t.Fatalf("Get v1: %v", err)
		}
		if !bytes.Equal(pinned.Items[0].Payload, []byte("v1")) {
			t.Fatalf("unexpected v1 payload %q", pinned.Items[0].Payload)
		}
		if pinned.Items[0].Metadata.Width != 64 {
			t.Fatalf("expected metadata to round-trip, got %+v", pinned.Items[0].Metadata)
		}
	})

	t.Run("WriteOncePerVersion", func(t *testing.T) {
		store := newStore(t)
		mustPut(t, store, "s1", session.StageAudio, 1, []byte("first"))
		err := store.Put(context.Background(), "s1", session.StageAudio, 1, sample([]byte("second")))
		if !errors.Is(err, artifact.ErrVersionExists) {
			t.Fatalf("expected ErrVersionExists, got %v", err)
		}
		got, err := store.Get(context.Background(), "s1", session.StageAudio, 1)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got.Items[0].Payload, []byte("first")) {
			t.Fatalf("stored version was overwritten: %q", got.Items[0].Payload)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "missing", session.StageAudio, 0)
		if !errors.Is(err, artifact.ErrNotFound) || !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		mustPut(t, store, "s1", session.StageAudio, 1, []byte("a"))
		if _, err := store.Get(context.Background(), "s1", session.StageAudio, 7); !errors.Is(err, artifact.ErrNotFound) {
			t.Fatalf("expected not found for missing version, got %v", err)
		}
	})

	t.Run("ClearIsSessionScoped", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustPut(t, store, "s1", session.StageAudio, 1, []byte("a"))
		mustPut(t, store, "s2", session.StageAudio, 1, []byte("b"))

		if err := store.Clear(ctx, "s1"); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if _, err := store.Get(ctx, "s1", session.StageAudio, 0); !errors.Is(err, artifact.ErrNotFound) {
			t.Fatalf("expected s1 cleared, got %v", err)
		}
		if _, err := store.Get(ctx, "s2", session.StageAudio, 0); err != nil {
			t.Fatalf("expected s2 untouched, got %v", err)
		}
		versions, err := store.Versions(ctx, "s1", session.StageAudio)
		if err != nil {
			t.Fatalf("Versions: %v", err)
		}
		if len(versions) != 0 {
			t.Fatalf("expected no versions after clear, got %v", versions)
		}
	})

	t.Run("VersionsAscending", func(t *testing.T) {
		store := newStore(t)
		mustPut(t, store, "s1", session.StageImages, 3, []byte("c"))
		mustPut(t, store, "s1", session.StageImages, 1, []byte("a"))
		versions, err := store.Versions(context.Background(), "s1", session.StageImages)
		if err != nil {
			t.Fatalf("Versions: %v", err)
		}
		if len(versions) != 2 || versions[0] != 1 || versions[1] != 3 {
			t.Fatalf("unexpected versions %v", versions)
		}
	})

	t.Run("RejectsInvalidKey", func(t *testing.T) {
		store := newStore(t)
		if err := store.Put(context.Background(), "s1", session.StageAudio, 0, sample(nil)); err == nil {
			t.Fatal("expected error for version 0")
		}
		if err := store.Put(context.Background(), "", session.StageAudio, 1, sample(nil)); err == nil {
			t.Fatal("expected error for empty session id")
		}
	})
}

func sample(payload []byte) artifact.Artifact {
	return artifact.Artifact{Items: []artifact.Item{{
		ContentType: artifact.ContentTypePNG,
		Payload:     payload,
		Metadata:    artifact.Metadata{Width: 64, Height: 36},
	}}}
}

func mustPut(t *testing.T, store artifact.Store, sessionID string, stage session.StageKind, version int, payload []byte) {
	t.Helper()
	if err := store.Put(context.Background(), sessionID, stage, version, sample(payload)); err != nil {
		t.Fatalf("Put %s/%s v%d: %v", sessionID, stage, version, err)
	}
}
