package orchestrator

import (
	"context"

	"reelforge/internal/logging"
	"reelforge/internal/services"
	"reelforge/internal/session"
)

// mutate applies fn to the session under its lock, then journals the result
// and publishes the event fn returns. Subscribers run after the lock is
// released.
func (o *Orchestrator) mutate(ctx context.Context, e *entry, fn func(s *session.Session) Event) session.Snapshot {
	e.mu.Lock()
	evt := fn(e.sess)
	e.sess.Touch()
	snap := e.sess.Snapshot()
	e.mu.Unlock()

	o.persist(ctx, snap)
	o.emit(evt, snap)
	return snap
}

func (o *Orchestrator) persist(ctx context.Context, snap session.Snapshot) {
	if o.journal == nil {
		return
	}
	if err := o.journal.SaveSession(context.WithoutCancel(ctx), snap); err != nil {
		logging.WarnWithContext(
			logging.WithContext(services.WithSessionID(ctx, snap.ID), o.logger),
			"failed to persist session",
			"journal_write_failed",
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
			logging.String(logging.FieldImpact, "session state will be lost on restart"),
			logging.Error(err),
		)
	}
}

func (o *Orchestrator) emit(evt Event, snap session.Snapshot) {
	evt.SessionID = snap.ID
	if evt.Phase == "" {
		evt.Phase = snap.Phase
	}
	if evt.Type != EventSessionDestroyed {
		cp := snap
		evt.Snapshot = &cp
	}
	evt = o.bus.Publish(evt)

	o.subMu.RLock()
	subs := make([]func(Event), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.subMu.RUnlock()
	for _, fn := range subs {
		fn(evt)
	}
}

func stageEvent(rec *session.StageRecord, message string) Event {
	return Event{
		Type:    EventStageChanged,
		Stage:   rec.Kind,
		Status:  rec.Status,
		Version: rec.Version,
		Message: message,
	}
}

func phaseEvent(phase session.Phase, message string) Event {
	return Event{Type: EventPhaseChanged, Phase: phase, Message: message}
}
