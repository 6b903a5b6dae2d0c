package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reelforge/internal/artifact"
	"reelforge/internal/logging"
	"reelforge/internal/services"
	"reelforge/internal/session"
)

// Request carries everything a stage execution may consume.
type Request struct {
	SessionID  string
	Script     string
	Duration   session.Duration
	Voice      session.VoiceID
	ImageCount int
	// Upstream holds the artifacts consumed by thumbnail and final video.
	Upstream map[session.StageKind]artifact.Artifact
}

// publishKey shares the in-flight table with the stages.
const publishKey session.StageKind = "publish"

type inflightKey struct {
	sessionID string
	stage     session.StageKind
}

// Gateway dispatches stage executions to providers.
type Gateway struct {
	providers Set
	timeout   time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[inflightKey]struct{}
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout bounds every provider call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// NewGateway constructs a gateway over the given providers.
func NewGateway(providers Set, opts ...Option) *Gateway {
	g := &Gateway{
		providers: providers,
		inflight:  make(map[inflightKey]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "provider-gateway")
	return g
}

// Execute runs the provider for kind and returns the produced artifact. The
// artifact's Ref is left for the caller to assign.
func (g *Gateway) Execute(ctx context.Context, kind session.StageKind, req Request) (artifact.Artifact, error) {
	release, err := g.acquire(req.SessionID, kind)
	if err != nil {
		return artifact.Artifact{}, err
	}
	defer release()

	if err := ctx.Err(); err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrCancelled, string(kind), "execute", "cancelled before provider call", err)
	}

	callCtx, cancel := g.bound(ctx)
	defer cancel()

	logger := logging.WithContext(services.WithStage(services.WithSessionID(ctx, req.SessionID), string(kind)), g.logger)
	started := time.Now()
	items, err := g.dispatch(callCtx, kind, req)
	if err != nil {
		err = g.classify(ctx, string(kind), "execute", err)
		logger.Debug("provider call failed",
			logging.String(logging.FieldEventType, "provider_call_failed"),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
		)
		return artifact.Artifact{}, err
	}
	if len(items) == 0 {
		return artifact.Artifact{}, services.Wrap(services.ErrProvider, string(kind), "execute", "provider returned no output", nil)
	}

	logger.Debug("provider call completed",
		logging.String(logging.FieldEventType, "provider_call_complete"),
		logging.Int("items", len(items)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return artifact.Artifact{Items: items}, nil
}

// WriteScript drafts a script from a title using the configured ScriptWriter.
func (g *Gateway) WriteScript(ctx context.Context, title string) (string, error) {
	if g.providers.Scripts == nil {
		return "", services.Wrap(services.ErrConfiguration, "script", "write", "no script writer configured", nil)
	}
	callCtx, cancel := g.bound(ctx)
	defer cancel()
	script, err := g.providers.Scripts.Write(callCtx, title)
	if err != nil {
		return "", g.classify(ctx, "script", "write", err)
	}
	return script, nil
}

// AnalyzeChannel returns up to limit reference videos for channelURL.
func (g *Gateway) AnalyzeChannel(ctx context.Context, channelURL string, limit int) ([]session.Reference, error) {
	if g.providers.Channels == nil {
		return nil, services.Wrap(services.ErrConfiguration, "channel", "analyze", "no channel analyzer configured", nil)
	}
	callCtx, cancel := g.bound(ctx)
	defer cancel()
	refs, err := g.providers.Channels.Analyze(callCtx, channelURL, limit)
	if err != nil {
		return nil, g.classify(ctx, "channel", "analyze", err)
	}
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// Publish uploads a finished video. Only one publish per session may be in
// flight.
func (g *Gateway) Publish(ctx context.Context, req PublishRequest) (string, error) {
	if g.providers.Publisher == nil {
		return "", services.Wrap(services.ErrConfiguration, "publish", "publish", "no publisher configured", nil)
	}
	release, err := g.acquire(req.SessionID, publishKey)
	if err != nil {
		return "", err
	}
	defer release()

	callCtx, cancel := g.bound(ctx)
	defer cancel()
	logger := logging.WithContext(services.WithSessionID(ctx, req.SessionID), g.logger)
	url, err := g.providers.Publisher.Publish(callCtx, req)
	if err != nil {
		return "", g.classify(ctx, "publish", "publish", err)
	}
	if url == "" {
		return "", services.Wrap(services.ErrProvider, "publish", "publish", "publisher returned no url", nil)
	}
	logger.Debug("video published",
		logging.String(logging.FieldEventType, "provider_publish_complete"),
		logging.Int("video_version", req.VideoVersion),
	)
	return url, nil
}

// Health queries every provider that implements HealthChecker.
func (g *Gateway) Health(ctx context.Context) []Health {
	candidates := []struct {
		name string
		impl any
	}{
		{"narrator", g.providers.Narrator},
		{"images", g.providers.Images},
		{"thumbnails", g.providers.Thumbnails},
		{"assembler", g.providers.Assembler},
		{"scripts", g.providers.Scripts},
		{"channels", g.providers.Channels},
		{"publisher", g.providers.Publisher},
	}
	out := make([]Health, 0, len(candidates))
	for _, c := range candidates {
		if c.impl == nil {
			out = append(out, Unhealthy(c.name, "not configured"))
			continue
		}
		if checker, ok := c.impl.(HealthChecker); ok {
			out = append(out, checker.HealthCheck(ctx))
			continue
		}
		out = append(out, Healthy(c.name))
	}
	return out
}

func (g *Gateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Gateway) acquire(sessionID string, kind session.StageKind) (func(), error) {
	key := inflightKey{sessionID: sessionID, stage: kind}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[key]; busy {
		return nil, services.Wrap(services.ErrConcurrentOperation, string(kind), "execute",
			"a call for this stage is already in flight", nil)
	}
	g.inflight[key] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
	}, nil
}

func (g *Gateway) dispatch(ctx context.Context, kind session.StageKind, req Request) ([]artifact.Item, error) {
	switch kind {
	case session.StageAudio:
		if g.providers.Narrator == nil {
			return nil, errNoProvider(kind)
		}
		item, err := g.providers.Narrator.Synthesize(ctx, req.Script, req.Voice, req.Duration)
		if err != nil {
			return nil, err
		}
		return []artifact.Item{item}, nil

	case session.StageImages:
		if g.providers.Images == nil {
			return nil, errNoProvider(kind)
		}
		return g.providers.Images.Generate(ctx, req.Script, req.ImageCount)

	case session.StageThumbnail:
		if g.providers.Thumbnails == nil {
			return nil, errNoProvider(kind)
		}
		images, err := upstream(req, kind, session.StageImages)
		if err != nil {
			return nil, err
		}
		item, err := g.providers.Thumbnails.SelectThumbnail(ctx, images.Items)
		if err != nil {
			return nil, err
		}
		return []artifact.Item{item}, nil

	case session.StageFinalVideo:
		if g.providers.Assembler == nil {
			return nil, errNoProvider(kind)
		}
		audio, err := upstream(req, kind, session.StageAudio)
		if err != nil {
			return nil, err
		}
		images, err := upstream(req, kind, session.StageImages)
		if err != nil {
			return nil, err
		}
		thumb, err := upstream(req, kind, session.StageThumbnail)
		if err != nil {
			return nil, err
		}
		audioItem, _ := audio.Primary()
		thumbItem, _ := thumb.Primary()
		item, err := g.providers.Assembler.Assemble(ctx, audioItem, images.Items, thumbItem, req.Duration)
		if err != nil {
			return nil, err
		}
		return []artifact.Item{item}, nil

	default:
		return nil, services.Wrap(services.ErrValidation, string(kind), "execute", "unknown stage", nil)
	}
}

// classify maps a provider error onto the services markers. Cancellation of
// the caller's context wins over the provider's own error; the gateway's own
// deadline is a provider failure.
func (g *Gateway) classify(parent context.Context, stage, op string, err error) error {
	if parent.Err() != nil && errors.Is(parent.Err(), context.Canceled) {
		return services.Wrap(services.ErrCancelled, stage, op, "provider call cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrProvider, stage, op,
			fmt.Sprintf("provider timed out after %s", g.timeout), err)
	}
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		return err
	}
	return services.Wrap(services.ErrProvider, stage, op, "provider call failed", err)
}

func upstream(req Request, kind, dep session.StageKind) (artifact.Artifact, error) {
	art, ok := req.Upstream[dep]
	if !ok || len(art.Items) == 0 {
		return artifact.Artifact{}, services.Wrap(services.ErrValidation, string(kind), "execute",
			fmt.Sprintf("%s artifact is required", dep), nil)
	}
	return art, nil
}

func errNoProvider(kind session.StageKind) error {
	return services.Wrap(services.ErrConfiguration, string(kind), "execute", "no provider configured", nil)
}
