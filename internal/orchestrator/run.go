package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reelforge/internal/artifact"
	"reelforge/internal/logging"
	"reelforge/internal/provider"
	"reelforge/internal/selection"
	"reelforge/internal/services"
	"reelforge/internal/session"
)

// runPhase executes every stage of phase that is not already up to date,
// strictly in order, and moves the session on when all succeed.
func (o *Orchestrator) runPhase(ctx context.Context, e *entry, phase session.Phase) (session.Snapshot, error) {
	o.invalidateStale(ctx, e)
	if err := o.checkSelections(e); err != nil {
		return o.snapshotOf(e), err
	}

	for _, kind := range session.StagesForPhase(phase) {
		if o.upToDate(e, kind) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return o.snapshotOf(e), cancelled(kind, err)
		}
		if err := o.executeStage(ctx, e, kind, false); err != nil {
			if services.IsCancellation(err) || errors.Is(err, services.ErrConcurrentOperation) {
				return o.snapshotOf(e), err
			}
			return o.failPhase(ctx, e, phase, kind, err), err
		}
	}

	next := session.PhaseReviewingContent
	if phase == session.PhaseFinalizing {
		next = session.PhaseComplete
	}
	snap := o.setPhase(ctx, e, next, "")
	if next == session.PhaseComplete {
		o.sessionLogger(ctx).Info("session complete",
			logging.String(logging.FieldEventType, "session_complete"),
			logging.Int("final_video_version", snap.Stage(session.StageFinalVideo).Version),
		)
	}
	return snap, nil
}

// enterPhase moves the session from one phase into an executing phase and
// runs it. If the run is cancelled before any stage of the new phase has
// succeeded, the session goes back to the phase it left.
func (o *Orchestrator) enterPhase(ctx context.Context, e *entry, from, to session.Phase) (session.Snapshot, error) {
	o.setPhase(ctx, e, to, "")
	snap, err := o.runPhase(ctx, e, to)
	if err == nil || !services.IsCancellation(err) || o.phaseProgressed(e, to) {
		return snap, err
	}
	return o.setPhase(context.WithoutCancel(ctx), e, from, "cancelled"), err
}

func (o *Orchestrator) phaseProgressed(e *entry, phase session.Phase) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, kind := range session.StagesForPhase(phase) {
		if e.sess.Record(kind).Status == session.StatusSucceeded {
			return true
		}
	}
	return false
}

// executeStage runs one stage end to end. During regeneration a failure or
// cancellation restores the record that was current before the attempt.
func (o *Orchestrator) executeStage(ctx context.Context, e *entry, kind session.StageKind, regenerate bool) error {
	var (
		prev   *session.StageRecord
		inputs map[session.StageKind]int
		req    provider.Request
	)
	o.mutate(ctx, e, func(s *session.Session) Event {
		rec := s.Record(kind)
		prev = rec.Clone()
		inputs = make(map[session.StageKind]int, len(kind.Dependencies()))
		for _, dep := range kind.Dependencies() {
			inputs[dep] = s.Record(dep).Version
		}
		req = provider.Request{
			SessionID:  s.ID,
			Script:     s.Script,
			Duration:   s.Duration,
			Voice:      s.Voice,
			ImageCount: o.imageCount,
		}
		rec.SetRunning()
		return stageEvent(rec, "")
	})

	stageCtx := services.WithStage(ctx, string(kind))
	logger := logging.WithContext(stageCtx, o.logger)
	started := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Bool("regenerate", regenerate),
		logging.Int("current_version", prev.Version),
		logging.Int("attempt", prev.Attempts+1),
	)

	upstream, err := o.loadUpstream(stageCtx, req.SessionID, inputs)
	var art artifact.Artifact
	if err == nil {
		req.Upstream = upstream
		art, err = o.gateway.Execute(stageCtx, kind, req)
	}
	var ref session.ArtifactRef
	if err == nil {
		ref, err = o.storeArtifact(stageCtx, req.SessionID, kind, prev.Version, art)
	}
	if err != nil {
		return o.handleStageError(stageCtx, e, kind, prev, regenerate, err)
	}

	o.mutate(ctx, e, func(s *session.Session) Event {
		rec := s.Record(kind)
		rec.SetSucceeded(ref, inputs)
		return stageEvent(rec, "")
	})
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("version", ref.Version),
		logging.Int("items", len(art.Items)),
		logging.Int64("bytes", art.TotalBytes()),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return nil
}

func (o *Orchestrator) loadUpstream(ctx context.Context, sessionID string, inputs map[session.StageKind]int) (map[session.StageKind]artifact.Artifact, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	out := make(map[session.StageKind]artifact.Artifact, len(inputs))
	for dep, version := range inputs {
		if version == 0 {
			return nil, services.Wrap(services.ErrProvider, string(dep), "load upstream",
				fmt.Sprintf("%s has not produced output", dep), nil)
		}
		art, err := o.store.Get(ctx, sessionID, dep, version)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, services.Wrap(services.ErrProvider, string(dep), "load upstream",
				fmt.Sprintf("read %s v%d", dep, version), err)
		}
		out[dep] = art
	}
	return out, nil
}

// storeArtifact writes art as the next version after current. Versions that
// already exist in the store (left by an interrupted run) are skipped.
func (o *Orchestrator) storeArtifact(ctx context.Context, sessionID string, kind session.StageKind, current int, art artifact.Artifact) (session.ArtifactRef, error) {
	writeCtx := context.WithoutCancel(ctx)
	next := current + 1
	versions, err := o.store.Versions(writeCtx, sessionID, kind)
	if err != nil {
		return session.ArtifactRef{}, services.Wrap(services.ErrProvider, string(kind), "store artifact", "list versions", err)
	}
	if n := len(versions); n > 0 && versions[n-1] >= next {
		next = versions[n-1] + 1
	}
	ref := session.ArtifactRef{SessionID: sessionID, Stage: kind, Version: next}
	art.Ref = ref
	if err := o.store.Put(writeCtx, sessionID, kind, next, art); err != nil {
		return session.ArtifactRef{}, services.Wrap(services.ErrProvider, string(kind), "store artifact",
			fmt.Sprintf("write v%d", next), err)
	}
	return ref, nil
}

// invalidateStale marks the final video pending when it consumed upstream
// versions that have since been superseded.
func (o *Orchestrator) invalidateStale(ctx context.Context, e *entry) {
	e.mu.Lock()
	stale := e.sess.Record(session.StageFinalVideo).Stale(latestVersions(e.sess))
	e.mu.Unlock()
	if !stale {
		return
	}
	o.mutate(ctx, e, func(s *session.Session) Event {
		rec := s.Record(session.StageFinalVideo)
		rec.SetPending()
		return stageEvent(rec, "upstream output changed")
	})
	o.sessionLogger(ctx).Info("final video invalidated",
		logging.String(logging.FieldEventType, "stage_invalidated"),
		logging.String(logging.FieldStage, string(session.StageFinalVideo)),
	)
}

func (o *Orchestrator) upToDate(e *entry, kind session.StageKind) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.sess.Record(kind)
	return rec.Status == session.StatusSucceeded && !rec.Stale(latestVersions(e.sess))
}

// checkSelections re-validates duration and voice before stages that
// depend on them. Credentials are only gated when leaving configuring.
func (o *Orchestrator) checkSelections(e *entry) error {
	e.mu.Lock()
	input := selection.InputFor(e.sess, o.voices, true)
	e.mu.Unlock()
	return selection.Validate(input)
}

func latestVersions(s *session.Session) map[session.StageKind]int {
	out := make(map[session.StageKind]int, len(s.Stages))
	for kind, rec := range s.Stages {
		if rec != nil {
			out[kind] = rec.Version
		}
	}
	return out
}

func cancelled(kind session.StageKind, err error) error {
	if errors.Is(err, services.ErrCancelled) {
		return err
	}
	return services.Wrap(services.ErrCancelled, string(kind), "execute", "operation cancelled", err)
}

func errorMessage(err error) string {
	details := services.Details(err)
	message := strings.TrimSpace(details.Message)
	if details.Cause != nil {
		if cause := strings.TrimSpace(details.Cause.Error()); cause != "" && cause != message {
			message = message + ": " + cause
		}
	}
	if message == "" {
		message = strings.TrimSpace(err.Error())
	}
	return message
}
