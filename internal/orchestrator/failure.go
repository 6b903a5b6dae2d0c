package orchestrator

import (
	"context"
	"errors"
	"time"

	"reelforge/internal/logging"
	"reelforge/internal/services"
	"reelforge/internal/session"
)

// handleStageError settles the stage record after a failed execution and
// returns the error the caller should surface.
func (o *Orchestrator) handleStageError(ctx context.Context, e *entry, kind session.StageKind, prev *session.StageRecord, regenerate bool, stageErr error) error {
	logger := logging.WithContext(ctx, o.logger)
	interrupted := services.IsCancellation(stageErr) || errors.Is(stageErr, services.ErrConcurrentOperation)
	message := errorMessage(stageErr)
	errKind := string(services.KindOf(stageErr))

	o.mutate(ctx, e, func(s *session.Session) Event {
		rec := s.Record(kind)
		attempts := rec.Attempts
		switch {
		case regenerate:
			*rec = *prev.Clone()
			rec.Attempts = attempts
			rec.UpdatedAt = time.Now().UTC()
			if !interrupted {
				rec.Error = &session.ErrorInfo{Kind: errKind, Stage: kind, Message: message, At: rec.UpdatedAt}
			}
		case interrupted:
			rec.SetPending()
		default:
			rec.SetFailed(errKind, message)
		}
		return stageEvent(rec, message)
	})

	if interrupted {
		logger.Info("stage interrupted",
			logging.String(logging.FieldEventType, "stage_interrupted"),
			logging.String("reason", errKind),
		)
		if services.IsCancellation(stageErr) {
			return cancelled(kind, stageErr)
		}
		return stageErr
	}

	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.String("error_kind", errKind),
		logging.String("error_message", message),
		logging.Bool("regenerate", regenerate),
		logging.String(logging.FieldErrorHint, failureHint(regenerate)),
		logging.Error(stageErr),
	)
	return stageErr
}

// failPhase moves the session to failed, remembering where it came from.
func (o *Orchestrator) failPhase(ctx context.Context, e *entry, phase session.Phase, kind session.StageKind, stageErr error) session.Snapshot {
	return o.mutate(ctx, e, func(s *session.Session) Event {
		s.FailedFrom = phase
		s.Phase = session.PhaseFailed
		evt := phaseEvent(session.PhaseFailed, errorMessage(stageErr))
		evt.Stage = kind
		evt.Status = session.StatusFailed
		return evt
	})
}

func failureHint(regenerate bool) string {
	if regenerate {
		return "previous images are kept; regenerate again or advance"
	}
	return "run retry to re-run the failed stage or reset to start over"
}
