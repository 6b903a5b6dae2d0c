package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelforge/internal/logging"
	"reelforge/internal/selection"
	"reelforge/internal/services"
	"reelforge/internal/session"
)

// ConfigureInput changes selections while a session is configuring. Zero
// values leave the current selection unchanged.
type ConfigureInput struct {
	Script   string
	Duration session.Duration
	Voice    session.VoiceID
}

// Configure updates script, duration, or voice. It is only valid in the
// configuring phase.
func (o *Orchestrator) Configure(ctx context.Context, id string, in ConfigureInput) (session.Snapshot, error) {
	e, opCtx, finish, err := o.begin(ctx, id, "configure")
	if err != nil {
		return session.Snapshot{}, err
	}
	defer finish()

	current := o.snapshotOf(e)
	if current.Phase != session.PhaseConfiguring {
		return current, invalidTransition("configure", current.Phase)
	}
	if err := selection.ValidateSelection(in.Duration, in.Voice, o.voices); err != nil {
		return current, err
	}

	return o.mutate(opCtx, e, func(s *session.Session) Event {
		var changed []string
		if script := strings.TrimSpace(in.Script); script != "" && script != s.Script {
			s.Script = script
			changed = append(changed, selection.FieldScript)
		}
		if in.Duration != 0 && in.Duration != s.Duration {
			s.Duration = in.Duration
			changed = append(changed, selection.FieldDuration)
		}
		if in.Voice != "" && in.Voice != s.Voice {
			s.Voice = in.Voice
			changed = append(changed, selection.FieldVoice)
		}
		return Event{Type: EventSelectionChanged, Message: strings.Join(changed, ",")}
	}), nil
}

// Advance moves the session forward: configuring starts generation,
// reviewing starts finalization, and the two executing phases resume any
// stage that has not succeeded (after a cancellation).
func (o *Orchestrator) Advance(ctx context.Context, id string) (session.Snapshot, error) {
	e, opCtx, finish, err := o.begin(ctx, id, "advance")
	if err != nil {
		return session.Snapshot{}, err
	}
	defer finish()

	e.mu.Lock()
	phase := e.sess.Phase
	input := selection.InputFor(e.sess, o.voices, o.credentials.Configured())
	e.mu.Unlock()

	switch phase {
	case session.PhaseConfiguring:
		if err := selection.Validate(input); err != nil {
			logging.WarnWithContext(o.sessionLogger(opCtx), "advance blocked by selection", "validation_failed",
				logging.String(logging.FieldErrorHint, "choose a duration and voice and configure credentials"),
				logging.String(logging.FieldImpact, "session stays in configuring"),
				logging.Error(err),
			)
			return o.snapshotOf(e), err
		}
		return o.enterPhase(opCtx, e, phase, session.PhaseGeneratingContent)
	case session.PhaseGeneratingContent, session.PhaseFinalizing:
		return o.runPhase(opCtx, e, phase)
	case session.PhaseReviewingContent:
		return o.enterPhase(opCtx, e, phase, session.PhaseFinalizing)
	default:
		return o.snapshotOf(e), invalidTransition("advance", phase)
	}
}

// Regenerate re-runs one stage from the review phase. Only images may be
// regenerated; the new output gets the next version while audio and
// thumbnail keep theirs.
func (o *Orchestrator) Regenerate(ctx context.Context, id string, kind session.StageKind) (session.Snapshot, error) {
	e, opCtx, finish, err := o.begin(ctx, id, "regenerate")
	if err != nil {
		return session.Snapshot{}, err
	}
	defer finish()

	current := o.snapshotOf(e)
	if err := selection.ValidateRegeneration(current.Phase, kind); err != nil {
		return current, err
	}
	if err := o.checkSelections(e); err != nil {
		return current, err
	}
	if err := o.executeStage(opCtx, e, kind, true); err != nil {
		return o.snapshotOf(e), err
	}
	o.invalidateStale(opCtx, e)
	return o.snapshotOf(e), nil
}

// Retry returns a failed session to the phase it failed in and re-runs the
// stages of that phase that have not succeeded.
func (o *Orchestrator) Retry(ctx context.Context, id string) (session.Snapshot, error) {
	e, opCtx, finish, err := o.begin(ctx, id, "retry")
	if err != nil {
		return session.Snapshot{}, err
	}
	defer finish()

	current := o.snapshotOf(e)
	if current.Phase != session.PhaseFailed {
		return current, invalidTransition("retry", current.Phase)
	}
	from := current.FailedFrom
	if from != session.PhaseGeneratingContent && from != session.PhaseFinalizing {
		from = session.PhaseGeneratingContent
	}
	o.setPhase(opCtx, e, from, "retry")
	return o.runPhase(opCtx, e, from)
}

// Reset discards every stage record and artifact, clears the duration and
// voice, and returns the session to configuring. Only the title, script,
// and channel references survive, so the session must be configured again
// before it can advance. Any publication record is dropped.
func (o *Orchestrator) Reset(ctx context.Context, id string) (session.Snapshot, error) {
	e, opCtx, finish, err := o.begin(ctx, id, "reset")
	if err != nil {
		return session.Snapshot{}, err
	}
	defer finish()

	if err := o.store.Clear(context.WithoutCancel(opCtx), id); err != nil {
		return o.snapshotOf(e), fmt.Errorf("clear artifacts: %w", err)
	}
	snap := o.mutate(opCtx, e, func(s *session.Session) Event {
		s.ResetStages()
		s.Duration = 0
		s.Voice = ""
		s.Publication = nil
		s.Phase = session.PhaseConfiguring
		s.FailedFrom = ""
		return Event{Type: EventSessionReset}
	})
	o.sessionLogger(opCtx).Info("session reset", logging.String(logging.FieldEventType, "session_reset"))
	return snap, nil
}

// Cancel stops the session's in-flight operation, if any. The stage that was
// running returns to pending. The phase is kept, except that a phase entered
// by Advance in which nothing has succeeded yet is left for the one before.
func (o *Orchestrator) Cancel(id string) error {
	e, err := o.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
		o.logger.Info("cancellation requested",
			logging.String(logging.FieldSessionID, id),
			logging.String(logging.FieldEventType, "operation_cancel_requested"),
		)
	}
	return nil
}

// Destroy cancels any in-flight operation, waits for it to unwind, removes
// the session's artifacts, and forgets the session.
func (o *Orchestrator) Destroy(ctx context.Context, id string) error {
	e, err := o.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return notFound(id)
	}
	e.removed = true
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return services.Wrap(services.ErrCancelled, "", "destroy", "gave up waiting for in-flight operation", ctx.Err())
		}
	}

	o.mu.Lock()
	delete(o.sessions, id)
	o.mu.Unlock()

	if err := o.store.Clear(context.WithoutCancel(ctx), id); err != nil {
		return fmt.Errorf("clear artifacts: %w", err)
	}
	if o.journal != nil {
		if err := o.journal.DeleteSession(context.WithoutCancel(ctx), id); err != nil {
			return fmt.Errorf("delete session record: %w", err)
		}
	}
	e.mu.Lock()
	last := e.sess.Snapshot()
	e.mu.Unlock()
	o.emit(Event{Type: EventSessionDestroyed}, last)
	o.logger.Info("session destroyed",
		logging.String(logging.FieldSessionID, id),
		logging.String(logging.FieldEventType, "session_destroyed"),
	)
	return nil
}

// begin claims the session's single operation slot. The returned context is
// cancelled by Cancel, Destroy, or finish.
func (o *Orchestrator) begin(ctx context.Context, id, operation string) (*entry, context.Context, func(), error) {
	e, err := o.lookup(id)
	if err != nil {
		return nil, nil, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, nil, nil, notFound(id)
	}
	if e.running {
		return nil, nil, nil, services.Wrap(services.ErrConcurrentOperation, "", operation,
			"another operation is in flight for this session", nil)
	}

	opCtx, cancel := context.WithCancel(services.WithSessionID(ctx, id))
	done := make(chan struct{})
	e.running = true
	e.cancel = cancel
	e.done = done

	finish := func() {
		cancel()
		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.done = nil
		e.mu.Unlock()
		close(done)
	}
	return e, opCtx, finish, nil
}

func (o *Orchestrator) setPhase(ctx context.Context, e *entry, phase session.Phase, reason string) session.Snapshot {
	snap := o.mutate(ctx, e, func(s *session.Session) Event {
		s.Phase = phase
		if phase != session.PhaseFailed {
			s.FailedFrom = ""
		}
		return phaseEvent(phase, reason)
	})
	o.sessionLogger(ctx).Info("phase changed",
		logging.String(logging.FieldEventType, "phase_changed"),
		logging.String(logging.FieldPhase, string(phase)),
	)
	return snap
}

func (o *Orchestrator) sessionLogger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, o.logger)
}

func invalidTransition(operation string, phase session.Phase) error {
	return services.Wrap(services.ErrInvalidTransition, "", operation,
		fmt.Sprintf("%s is not allowed in phase %s", operation, phase), nil)
}

func notFound(id string) error {
	return services.Wrap(services.ErrNotFound, "", "lookup", fmt.Sprintf("session %q not found", id), nil)
}
