package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"reelforge/internal/artifact"
	"reelforge/internal/logging"
	"reelforge/internal/provider"
	"reelforge/internal/selection"
	"reelforge/internal/services"
	"reelforge/internal/session"
)

const (
	defaultImageCount = 5
	referenceLimit    = 3
)

// Gateway executes stages against providers.
type Gateway interface {
	Execute(ctx context.Context, kind session.StageKind, req provider.Request) (artifact.Artifact, error)
	WriteScript(ctx context.Context, title string) (string, error)
	AnalyzeChannel(ctx context.Context, channelURL string, limit int) ([]session.Reference, error)
	Publish(ctx context.Context, req provider.PublishRequest) (string, error)
}

// Journal persists session snapshots after every state change.
type Journal interface {
	SaveSession(ctx context.Context, snap session.Snapshot) error
	DeleteSession(ctx context.Context, id string) error
}

// Orchestrator owns sessions and runs their stages.
type Orchestrator struct {
	gateway     Gateway
	store       artifact.Store
	journal     Journal
	credentials provider.CredentialSource
	voices      []session.Voice
	imageCount  int
	logger      *slog.Logger
	bus         *EventBus

	subMu   sync.RWMutex
	subs    map[int]func(Event)
	nextSub int

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	sess    *session.Session
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	removed bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithJournal persists snapshots through j.
func WithJournal(j Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// WithCredentials gates generation on src.Configured().
func WithCredentials(src provider.CredentialSource) Option {
	return func(o *Orchestrator) { o.credentials = src }
}

// WithVoices replaces the voice catalog.
func WithVoices(voices []session.Voice) Option {
	return func(o *Orchestrator) {
		o.voices = append([]session.Voice(nil), voices...)
	}
}

// WithImageCount sets how many images each images run requests.
func WithImageCount(n int) Option {
	return func(o *Orchestrator) { o.imageCount = n }
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithEventBus shares an event bus with the caller.
func WithEventBus(bus *EventBus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// New constructs an orchestrator.
func New(gateway Gateway, store artifact.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway:    gateway,
		store:      store,
		imageCount: defaultImageCount,
		subs:       make(map[int]func(Event)),
		sessions:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.credentials == nil {
		o.credentials = provider.StaticCredentials(true)
	}
	if len(o.voices) == 0 {
		o.voices = session.DefaultVoices()
	}
	if o.imageCount <= 0 {
		o.imageCount = defaultImageCount
	}
	if o.bus == nil {
		o.bus = NewEventBus(0)
	}
	o.logger = logging.NewComponentLogger(o.logger, "orchestrator")
	return o
}

// CreateInput seeds a new session. When Script is blank and Title is set,
// the script is drafted from the title. A ChannelURL is analysed for
// reference videos that are kept on the session.
type CreateInput struct {
	Title      string
	Script     string
	Duration   session.Duration
	Voice      session.VoiceID
	ChannelURL string
}

// Create starts a new session in the configuring phase.
func (o *Orchestrator) Create(ctx context.Context, in CreateInput) (session.Snapshot, error) {
	title := strings.TrimSpace(in.Title)
	script := strings.TrimSpace(in.Script)
	if script == "" && title != "" {
		drafted, err := o.gateway.WriteScript(ctx, title)
		if err != nil {
			return session.Snapshot{}, err
		}
		script = strings.TrimSpace(drafted)
	}
	if script == "" {
		return session.Snapshot{}, &selection.ValidationError{MissingFields: []string{selection.FieldScript}}
	}
	if err := selection.ValidateSelection(in.Duration, in.Voice, o.voices); err != nil {
		return session.Snapshot{}, err
	}
	channel := strings.TrimSpace(in.ChannelURL)
	var refs []session.Reference
	if channel != "" {
		var err error
		if refs, err = o.gateway.AnalyzeChannel(ctx, channel, referenceLimit); err != nil {
			return session.Snapshot{}, err
		}
	}

	sess := session.New(uuid.NewString(), title, script)
	sess.Duration = in.Duration
	sess.Voice = in.Voice
	sess.ChannelURL = channel
	sess.References = refs

	e := &entry{sess: sess}
	o.mu.Lock()
	o.sessions[sess.ID] = e
	o.mu.Unlock()

	snap := sess.Snapshot()
	o.persist(ctx, snap)
	o.emit(Event{Type: EventSessionCreated}, snap)
	logging.WithContext(services.WithSessionID(ctx, sess.ID), o.logger).Info(
		"session created",
		logging.String(logging.FieldEventType, "session_created"),
		logging.Bool("drafted_from_title", strings.TrimSpace(in.Script) == "" && title != ""),
		logging.Int("references", len(refs)),
	)
	return snap, nil
}

// Restore adopts a previously persisted session. Stages left running by an
// interrupted process come back pending.
func (o *Orchestrator) Restore(ctx context.Context, snap session.Snapshot) (session.Snapshot, error) {
	if strings.TrimSpace(snap.ID) == "" {
		return session.Snapshot{}, services.Wrap(services.ErrValidation, "", "restore", "session id is required", nil)
	}
	sess := session.FromSnapshot(snap)
	if sess.EffectivePhase().AtLeast(session.PhaseGeneratingContent) {
		if err := selection.ValidateSelection(sess.Duration, sess.Voice, o.voices); err != nil {
			return session.Snapshot{}, err
		}
		if sess.Duration == 0 || sess.Voice == "" {
			return session.Snapshot{}, &selection.ValidationError{MissingFields: missingSelections(sess)}
		}
	}

	o.mu.Lock()
	if _, exists := o.sessions[sess.ID]; exists {
		o.mu.Unlock()
		return session.Snapshot{}, services.Wrap(services.ErrConcurrentOperation, "", "restore", "session is already loaded", nil)
	}
	o.sessions[sess.ID] = &entry{sess: sess}
	o.mu.Unlock()

	restored := sess.Snapshot()
	o.persist(ctx, restored)
	o.emit(Event{Type: EventSessionRestored}, restored)
	return restored, nil
}

// Snapshot returns a read-only copy of the session.
func (o *Orchestrator) Snapshot(id string) (session.Snapshot, error) {
	e, err := o.lookup(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return o.snapshotOf(e), nil
}

// List returns snapshots of every loaded session, oldest first.
func (o *Orchestrator) List() []session.Snapshot {
	o.mu.RLock()
	entries := make([]*entry, 0, len(o.sessions))
	for _, e := range o.sessions {
		entries = append(entries, e)
	}
	o.mu.RUnlock()

	out := make([]session.Snapshot, 0, len(entries))
	for _, e := range entries {
		out = append(out, o.snapshotOf(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Artifact reads a stored artifact for a loaded session. Version 0 returns
// the version the stage record currently points at.
func (o *Orchestrator) Artifact(ctx context.Context, id string, kind session.StageKind, version int) (artifact.Artifact, error) {
	e, err := o.lookup(id)
	if err != nil {
		return artifact.Artifact{}, err
	}
	if version == 0 {
		e.mu.Lock()
		version = e.sess.Record(kind).Version
		e.mu.Unlock()
		if version == 0 {
			return artifact.Artifact{}, fmt.Errorf("%s has no output yet: %w", kind, artifact.ErrNotFound)
		}
	}
	return o.store.Get(ctx, id, kind, version)
}

// Voices returns the voice catalog.
func (o *Orchestrator) Voices() []session.Voice {
	return append([]session.Voice(nil), o.voices...)
}

// Events exposes the orchestrator's event bus for polling.
func (o *Orchestrator) Events() *EventBus {
	return o.bus
}

// Subscribe registers fn for every event. Callbacks run synchronously on the
// goroutine that changed state and must not block. The returned function
// removes the subscription.
func (o *Orchestrator) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}
	o.subMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.subMu.Unlock()
	return func() {
		o.subMu.Lock()
		delete(o.subs, id)
		o.subMu.Unlock()
	}
}

func (o *Orchestrator) lookup(id string) (*entry, error) {
	o.mu.RLock()
	e, ok := o.sessions[id]
	o.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return e, nil
}

func (o *Orchestrator) snapshotOf(e *entry) session.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Snapshot()
}

func missingSelections(s *session.Session) []string {
	var missing []string
	if s.Duration == 0 {
		missing = append(missing, selection.FieldDuration)
	}
	if s.Voice == "" {
		missing = append(missing, selection.FieldVoice)
	}
	return missing
}
