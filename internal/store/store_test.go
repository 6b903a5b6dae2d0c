package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"reelforge/internal/artifact"
	"reelforge/internal/artifact/storetest"
	"reelforge/internal/services"
	"reelforge/internal/session"
	"reelforge/internal/store"
	"reelforge/internal/testsupport"
)

func TestStoreArtifactContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) artifact.Store {
		return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	})
}

func TestSessionJournalRoundTrip(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	sess := session.New("abc", "Saving money", "How to save money")
	sess.Duration = 30
	sess.Voice = "voice2"
	sess.Phase = session.PhaseFailed
	sess.FailedFrom = session.PhaseGeneratingContent
	sess.Record(session.StageAudio).SetSucceeded(session.ArtifactRef{SessionID: "abc", Stage: session.StageAudio, Version: 1}, nil)
	sess.Record(session.StageImages).SetFailed("provider", "quota exceeded")

	if err := s.SaveSession(ctx, sess.Snapshot()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	got, err := s.GetSession(ctx, "abc")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Phase != session.PhaseFailed || got.FailedFrom != session.PhaseGeneratingContent || got.Voice != "voice2" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if rec := got.Stage(session.StageAudio); rec.Version != 1 || rec.ArtifactRef == nil {
		t.Fatalf("audio record lost: %+v", rec)
	}
	if rec := got.Stage(session.StageImages); rec.Error == nil || rec.Error.Message != "quota exceeded" {
		t.Fatalf("images error lost: %+v", rec)
	}

	sess.Phase = session.PhaseGeneratingContent
	if err := s.SaveSession(ctx, sess.Snapshot()); err != nil {
		t.Fatalf("SaveSession update: %v", err)
	}
	counts, err := s.CountByPhase(ctx)
	if err != nil {
		t.Fatalf("CountByPhase: %v", err)
	}
	if counts[session.PhaseGeneratingContent] != 1 || counts[session.PhaseFailed] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}

	if err := s.DeleteSession(ctx, "abc"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := s.GetSession(ctx, "abc"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestLoadSessionsOrdersByCreation(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := session.New("b-first", "", "one")
	second := session.New("a-second", "", "two")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	for _, sess := range []*session.Session{second, first} {
		if err := s.SaveSession(ctx, sess.Snapshot()); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}

	loaded, err := s.LoadSessions(ctx)
	if err != nil {
		t.Fatalf("LoadSessions: %v", err)
	}
	if len(loaded) != 2 || loaded[0].ID != "b-first" || loaded[1].ID != "a-second" {
		t.Fatalf("unexpected order %v", loaded)
	}
}

func TestUsageCountsPayloadBytes(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	art := artifact.Artifact{Items: []artifact.Item{
		{ContentType: artifact.ContentTypePNG, Payload: []byte("1234")},
		{ContentType: artifact.ContentTypePNG, Payload: []byte("56")},
	}}
	if err := s.Put(ctx, "s1", session.StageImages, 1, art); err != nil {
		t.Fatalf("Put: %v", err)
	}
	versions, bytes, err := s.Usage(ctx, "s1")
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if versions != 1 || bytes != 6 {
		t.Fatalf("unexpected usage %d versions %d bytes", versions, bytes)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelforge.db")
	s, err := store.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := s.SaveSession(context.Background(), session.New("keep", "", "script").Snapshot()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := store.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetSession(context.Background(), "keep"); err != nil {
		t.Fatalf("expected session to survive reopen: %v", err)
	}
}
