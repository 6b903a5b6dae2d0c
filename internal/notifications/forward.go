package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/orchestrator"
	"reelforge/internal/session"
)

// Forwarder turns orchestrator events into notifications. Sends happen on
// their own goroutines so subscribers never block a running stage.
type Forwarder struct {
	svc        Service
	completion bool
	errors     bool
	timeout    time.Duration
	logger     *slog.Logger

	wg sync.WaitGroup
}

// NewForwarder builds a Forwarder honouring the completion and error
// toggles in cfg.
func NewForwarder(cfg *config.Config, svc Service, logger *slog.Logger) *Forwarder {
	f := &Forwarder{
		svc:        svc,
		completion: true,
		errors:     true,
		timeout:    10 * time.Second,
		logger:     logging.NewComponentLogger(logger, "notifications"),
	}
	if cfg != nil {
		f.completion = cfg.Notifications.Completion
		f.errors = cfg.Notifications.Errors
		if cfg.Notifications.RequestTimeout > 0 {
			f.timeout = time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		}
	}
	if f.svc == nil {
		f.svc = noopService{}
	}
	return f
}

// Handle is an orchestrator subscriber.
func (f *Forwarder) Handle(evt orchestrator.Event) {
	if evt.Snapshot == nil {
		return
	}
	snap := *evt.Snapshot
	title := snap.Title
	if title == "" {
		title = snap.ID
	}

	switch evt.Type {
	case orchestrator.EventPhaseChanged:
		switch evt.Phase {
		case session.PhaseComplete:
			if f.completion {
				version := snap.Stage(session.StageFinalVideo).Version
				f.dispatch(snap.ID, "session_complete", func(ctx context.Context) error {
					return f.svc.NotifySessionComplete(ctx, title, version)
				})
			}
		case session.PhaseFailed:
			if f.errors {
				stage, message := string(evt.Stage), evt.Message
				f.dispatch(snap.ID, "stage_failed", func(ctx context.Context) error {
					return f.svc.NotifyStageFailed(ctx, title, stage, message)
				})
			}
		}
	case orchestrator.EventSessionPublished:
		if f.completion && snap.Publication != nil {
			url := snap.Publication.URL
			f.dispatch(snap.ID, "published", func(ctx context.Context) error {
				return f.svc.NotifyPublished(ctx, title, url)
			})
		}
	case orchestrator.EventStageChanged:
		if evt.Stage != session.StageImages || snap.Phase != session.PhaseReviewingContent {
			return
		}
		rec := snap.Stage(evt.Stage)
		switch {
		case evt.Status != session.StatusSucceeded:
		case rec.Error != nil && f.errors:
			message := rec.Error.Message
			f.dispatch(snap.ID, "regeneration_failed", func(ctx context.Context) error {
				return f.svc.NotifyStageFailed(ctx, title, string(evt.Stage), message)
			})
		case rec.Error == nil && evt.Version > 1 && f.completion:
			version := evt.Version
			f.dispatch(snap.ID, "regenerated", func(ctx context.Context) error {
				return f.svc.NotifyRegenerated(ctx, title, string(evt.Stage), version)
			})
		}
	}
}

// Wait blocks until every dispatched notification has finished.
func (f *Forwarder) Wait() {
	f.wg.Wait()
}

func (f *Forwarder) dispatch(sessionID, kind string, send func(ctx context.Context) error) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()
		if err := send(ctx); err != nil {
			logging.WarnWithContext(f.logger, "notification failed", "notification_failed",
				logging.String(logging.FieldSessionID, sessionID),
				logging.String("notification", kind),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
				logging.Error(err),
			)
		}
	}()
}
