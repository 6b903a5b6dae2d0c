package artifact_test

import (
	"context"
	"testing"

	"reelforge/internal/artifact"
	"reelforge/internal/artifact/storetest"
	"reelforge/internal/session"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) artifact.Store {
		return artifact.NewMemoryStore()
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := artifact.NewMemoryStore()
	ctx := context.Background()
	payload := []byte("abc")
	art := artifact.Artifact{Items: []artifact.Item{{ContentType: artifact.ContentTypeWAV, Payload: payload}}}
	if err := store.Put(ctx, "s1", session.StageAudio, 1, art); err != nil {
		t.Fatalf("Put: %v", err)
	}
	payload[0] = 'z'

	got, err := store.Get(ctx, "s1", session.StageAudio, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Items[0].Payload) != "abc" {
		t.Fatalf("store kept caller's buffer: %q", got.Items[0].Payload)
	}
	got.Items[0].Payload[0] = 'y'
	again, _ := store.Get(ctx, "s1", session.StageAudio, 1)
	if string(again.Items[0].Payload) != "abc" {
		t.Fatalf("store returned shared buffer: %q", again.Items[0].Payload)
	}
	if again.Ref.Version != 1 || again.Ref.Stage != session.StageAudio || again.Ref.SessionID != "s1" {
		t.Fatalf("unexpected ref %+v", again.Ref)
	}
}
