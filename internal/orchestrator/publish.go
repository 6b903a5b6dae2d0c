package orchestrator

import (
	"context"
	"fmt"
	"time"

	"reelforge/internal/logging"
	"reelforge/internal/provider"
	"reelforge/internal/services"
	"reelforge/internal/session"
)

// Publish uploads the final video of a complete session and records where it
// went. Publishing a final video version that is already published returns
// the session unchanged.
func (o *Orchestrator) Publish(ctx context.Context, id string) (session.Snapshot, error) {
	e, opCtx, finish, err := o.begin(ctx, id, "publish")
	if err != nil {
		return session.Snapshot{}, err
	}
	defer finish()

	current := o.snapshotOf(e)
	if current.Phase != session.PhaseComplete {
		return current, invalidTransition("publish", current.Phase)
	}
	video := current.Stage(session.StageFinalVideo)
	if pub := current.Publication; pub != nil && pub.VideoVersion == video.Version {
		return current, nil
	}

	req, err := o.publishRequest(opCtx, current)
	if err != nil {
		return current, err
	}
	logger := o.sessionLogger(opCtx)
	url, err := o.gateway.Publish(opCtx, req)
	if err != nil {
		logging.WarnWithContext(logger, "publish failed", "publish_failed",
			logging.String(logging.FieldErrorHint, "check the youtube credentials and retry publish"),
			logging.String(logging.FieldImpact, "session stays complete and unpublished"),
			logging.Error(err),
		)
		return o.snapshotOf(e), err
	}

	snap := o.mutate(opCtx, e, func(s *session.Session) Event {
		s.Publication = &session.Publication{
			URL:          url,
			VideoVersion: video.Version,
			PublishedAt:  time.Now().UTC(),
		}
		return Event{Type: EventSessionPublished, Stage: session.StageFinalVideo, Version: video.Version, Message: url}
	})
	logger.Info("session published",
		logging.String(logging.FieldEventType, "session_published"),
		logging.Int("video_version", video.Version),
		logging.String("url", url),
	)
	return snap, nil
}

func (o *Orchestrator) publishRequest(ctx context.Context, snap session.Snapshot) (provider.PublishRequest, error) {
	req := provider.PublishRequest{
		SessionID:   snap.ID,
		Title:       snap.Title,
		Description: snap.Script,
	}
	for _, kind := range []session.StageKind{session.StageFinalVideo, session.StageThumbnail} {
		rec := snap.Stage(kind)
		if rec.Status != session.StatusSucceeded || rec.Version == 0 {
			return req, services.Wrap(services.ErrValidation, string(kind), "publish",
				fmt.Sprintf("%s has no output to publish", kind), nil)
		}
		art, err := o.store.Get(ctx, snap.ID, kind, rec.Version)
		if err != nil {
			return req, fmt.Errorf("load %s v%d: %w", kind, rec.Version, err)
		}
		item, _ := art.Primary()
		if kind == session.StageFinalVideo {
			req.Video = item
			req.VideoVersion = rec.Version
		} else {
			req.Thumbnail = item
		}
	}
	return req, nil
}
