package api

import (
	"errors"
	"net/http"
	"testing"

	"reelforge/internal/artifact"
	"reelforge/internal/orchestrator"
	"reelforge/internal/selection"
	"reelforge/internal/services"
	"reelforge/internal/session"
)

func TestFromSnapshotOrdersStages(t *testing.T) {
	s := session.New("s1", "Budget", "script")
	s.Duration = 90
	s.Voice = "voice2"
	s.Record(session.StageThumbnail).SetSucceeded(
		session.ArtifactRef{SessionID: "s1", Stage: session.StageThumbnail, Version: 1},
		map[session.StageKind]int{session.StageImages: 1},
	)
	s.Record(session.StageImages).SetFailed("provider", "quota exceeded")

	dto := FromSnapshot(s.Snapshot())
	if dto.DurationLabel != "1:30" || dto.Voice != "voice2" || dto.Phase != "configuring" {
		t.Fatalf("unexpected session dto %+v", dto)
	}
	var order []string
	for _, st := range dto.Stages {
		order = append(order, st.Stage)
	}
	want := []string{"audio", "images", "thumbnail", "final_video"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("stage order = %v, want %v", order, want)
		}
	}
	if dto.Stages[1].Error == nil || dto.Stages[1].Error.Message != "quota exceeded" {
		t.Fatalf("expected images error, got %+v", dto.Stages[1])
	}
	if dto.Stages[2].Inputs["images"] != 1 {
		t.Fatalf("expected thumbnail inputs, got %+v", dto.Stages[2].Inputs)
	}
	if dto.Publication != nil || dto.References != nil {
		t.Fatalf("expected no publication or references, got %+v", dto)
	}
}

func TestFromSnapshotCarriesReferencesAndPublication(t *testing.T) {
	s := session.New("s1", "Budget", "script")
	s.ChannelURL = "https://youtube.com/@money"
	s.References = []session.Reference{{ID: "v1", Title: "Save", Views: 2100000, DurationSeconds: 754}}
	s.Publication = &session.Publication{URL: "https://youtu.be/abc", VideoVersion: 2}

	dto := FromSnapshot(s.Snapshot())
	if dto.ChannelURL != s.ChannelURL || len(dto.References) != 1 || dto.References[0].Views != 2100000 {
		t.Fatalf("unexpected references %+v", dto.References)
	}
	if dto.Publication == nil || dto.Publication.URL != "https://youtu.be/abc" || dto.Publication.VideoVersion != 2 {
		t.Fatalf("unexpected publication %+v", dto.Publication)
	}
}

func TestFromEventsAdvancesCursor(t *testing.T) {
	snap := session.New("s1", "", "script").Snapshot()
	events := []orchestrator.Event{
		{Seq: 4, SessionID: "s1", Type: orchestrator.EventStageChanged, Snapshot: &snap},
		{Seq: 7, SessionID: "s1", Type: orchestrator.EventPhaseChanged, Snapshot: &snap},
	}
	resp := FromEvents(events, 3, false)
	if resp.Next != 7 || len(resp.Events) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Events[0].Session != nil {
		t.Fatal("expected session omitted")
	}
	if empty := FromEvents(nil, 9, true); empty.Next != 9 || len(empty.Events) != 0 {
		t.Fatalf("expected cursor kept when no events, got %+v", empty)
	}
	if withSession := FromEvents(events, 0, true); withSession.Events[1].Session == nil {
		t.Fatal("expected session included")
	}
}

func TestFromArtifactPayloadOptIn(t *testing.T) {
	art := artifact.Artifact{
		Ref:   session.ArtifactRef{SessionID: "s1", Stage: session.StageImages, Version: 2},
		Items: []artifact.Item{{ContentType: artifact.ContentTypePNG, Payload: []byte("png"), Metadata: artifact.Metadata{Width: 4}}},
	}
	described := FromArtifact(art, false)
	if described.Version != 2 || described.TotalBytes != 3 || described.Items[0].Payload != nil {
		t.Fatalf("unexpected description %+v", described)
	}
	if full := FromArtifact(art, true); string(full.Items[0].Payload) != "png" {
		t.Fatalf("expected payload, got %q", full.Items[0].Payload)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&selection.ValidationError{MissingFields: []string{"voice"}}, http.StatusUnprocessableEntity},
		{services.Wrap(services.ErrInvalidTransition, "", "retry", "", nil), http.StatusConflict},
		{services.Wrap(services.ErrConcurrentOperation, "", "advance", "", nil), http.StatusConflict},
		{services.Wrap(services.ErrNotFound, "", "lookup", "", nil), http.StatusNotFound},
		{services.Wrap(services.ErrProvider, "images", "execute", "", nil), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := StatusFor(tc.err); got != tc.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}

	body := ErrorBody(&selection.ValidationError{MissingFields: []string{"duration"}, InvalidFields: []string{"voice"}})
	if body.Kind != "validation" || body.MissingFields[0] != "duration" || body.InvalidFields[0] != "voice" {
		t.Fatalf("unexpected error body %+v", body)
	}
}
