package orchestrator

import (
	"sync"
	"time"

	"reelforge/internal/session"
)

// EventType classifies orchestrator notifications.
type EventType string

const (
	EventSessionCreated   EventType = "session_created"
	EventSessionRestored  EventType = "session_restored"
	EventSelectionChanged EventType = "selection_changed"
	EventPhaseChanged     EventType = "phase_changed"
	EventStageChanged     EventType = "stage_changed"
	EventSessionReset     EventType = "session_reset"
	EventSessionPublished EventType = "session_published"
	EventSessionDestroyed EventType = "session_destroyed"
)

// Event is a sequenced state change. Snapshot is the session as it stood
// right after the change; it is nil for destroyed sessions.
type Event struct {
	Seq       int64             `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	SessionID string            `json:"session_id"`
	Type      EventType         `json:"type"`
	Phase     session.Phase     `json:"phase,omitempty"`
	Stage     session.StageKind `json:"stage,omitempty"`
	Status    session.Status    `json:"status,omitempty"`
	Version   int               `json:"version,omitempty"`
	Message   string            `json:"message,omitempty"`
	Snapshot  *session.Snapshot `json:"snapshot,omitempty"`
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	return b.filter(seq, "")
}

// SinceForSession is Since restricted to one session.
func (b *EventBus) SinceForSession(sessionID string, seq int64) []Event {
	return b.filter(seq, sessionID)
}

// LastSeq reports the most recently assigned sequence number.
func (b *EventBus) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}

func (b *EventBus) filter(seq int64, sessionID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}
	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq <= seq {
			continue
		}
		if sessionID != "" && event.SessionID != sessionID {
			continue
		}
		out = append(out, event)
	}
	return out
}
