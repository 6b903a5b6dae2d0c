package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestStreamHandlerCarriesSessionAttrs(t *testing.T) {
	hub := NewStreamHub(100)
	handler := newStreamHandler(slog.NewTextHandler(discardWriter{}, nil), hub)

	logger := slog.New(handler).
		With(slog.String(FieldComponent, "orchestrator")).
		With(slog.String(FieldSessionID, "abc123")).
		With(slog.String(FieldStage, "images"))

	logger.Info("stage started", slog.String("extra", "value"))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	evt := events[0]
	if evt.SessionID != "abc123" {
		t.Errorf("expected session_id=abc123, got %q", evt.SessionID)
	}
	if evt.Stage != "images" {
		t.Errorf("expected stage=images, got %q", evt.Stage)
	}
	if evt.Component != "orchestrator" {
		t.Errorf("expected component=orchestrator, got %q", evt.Component)
	}
	if evt.Fields["extra"] != "value" {
		t.Errorf("expected extra field, got %v", evt.Fields)
	}
}

func TestStreamHandlerCallSiteOverridesWithAttrs(t *testing.T) {
	hub := NewStreamHub(100)
	handler := newStreamHandler(slog.NewTextHandler(discardWriter{}, nil), hub)

	logger := slog.New(handler).With(slog.String(FieldStage, "audio"))
	logger.Info("message", slog.String(FieldStage, "thumbnail"))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Stage != "thumbnail" {
		t.Errorf("expected stage=thumbnail, got %q", events[0].Stage)
	}
}

func TestStreamHandlerNilHub(t *testing.T) {
	base := slog.NewTextHandler(discardWriter{}, nil)
	if handler := newStreamHandler(base, nil); handler != base {
		t.Errorf("expected base handler when hub is nil")
	}
}

func TestStreamHubEvictsOldest(t *testing.T) {
	hub := NewStreamHub(2)
	for i := 0; i < 3; i++ {
		hub.Publish(LogEvent{Message: "m"})
	}
	events, next := hub.Tail(0)
	if len(events) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", len(events))
	}
	if events[0].Sequence != 2 || next != 3 {
		t.Fatalf("unexpected sequences: first=%d next=%d", events[0].Sequence, next)
	}
	if hub.FirstSequence() != 2 {
		t.Fatalf("expected first sequence 2, got %d", hub.FirstSequence())
	}
}

func TestStreamHubFetchSince(t *testing.T) {
	hub := NewStreamHub(10)
	hub.Publish(LogEvent{Message: "one"})
	hub.Publish(LogEvent{Message: "two"})

	events, next, err := hub.Fetch(context.Background(), 1, 0, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].Message != "two" || next != 2 {
		t.Fatalf("unexpected fetch result: %+v next=%d", events, next)
	}
}

func TestStreamHubFetchWaitHonoursContext(t *testing.T) {
	hub := NewStreamHub(10)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := hub.Fetch(ctx, 0, 0, true)
	if err == nil {
		t.Fatal("expected context error when no events arrive")
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
