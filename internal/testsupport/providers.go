package testsupport

import (
	"context"
	"fmt"
	"sync"

	"reelforge/internal/artifact"
	"reelforge/internal/provider"
	"reelforge/internal/session"
)

// Providers is a scripted implementation of every provider contract. Calls
// succeed with small payloads unless a failure is queued or the stage is
// blocked.
type Providers struct {
	mu       sync.Mutex
	calls    map[session.StageKind]int
	failures map[session.StageKind][]error
	blocks   map[session.StageKind]chan struct{}
	started  chan session.StageKind
	inputs   map[session.StageKind][]Call
}

// Keys for the non-stage collaborators, usable with FailNext, Block, Calls,
// and LastCall.
const (
	KindChannel session.StageKind = "channel"
	KindPublish session.StageKind = "publish"
)

// Call records what one provider invocation received.
type Call struct {
	Script    string
	Voice     session.VoiceID
	Duration  session.Duration
	Count     int
	Images    []artifact.Item
	Audio     artifact.Item
	Thumbnail artifact.Item
	Title     string
	Channel   string
	Version   int
}

// NewProviders returns scripted providers that succeed by default.
func NewProviders() *Providers {
	return &Providers{
		calls:    make(map[session.StageKind]int),
		failures: make(map[session.StageKind][]error),
		blocks:   make(map[session.StageKind]chan struct{}),
		started:  make(chan session.StageKind, 64),
		inputs:   make(map[session.StageKind][]Call),
	}
}

// Set exposes the providers as a provider.Set.
func (p *Providers) Set() provider.Set {
	return provider.Set{
		Narrator:   p,
		Images:     p,
		Thumbnails: p,
		Assembler:  p,
		Scripts:    p,
		Channels:   p,
		Publisher:  p,
	}
}

// FailNext queues err for the next call to kind.
func (p *Providers) FailNext(kind session.StageKind, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[kind] = append(p.failures[kind], err)
}

// Block makes calls to kind wait until the returned release function runs or
// the call's context ends.
func (p *Providers) Block(kind session.StageKind) (release func()) {
	ch := make(chan struct{})
	p.mu.Lock()
	p.blocks[kind] = ch
	p.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			if p.blocks[kind] == ch {
				delete(p.blocks, kind)
			}
			p.mu.Unlock()
			close(ch)
		})
	}
}

// Started delivers the stage kind of every call as it begins.
func (p *Providers) Started() <-chan session.StageKind {
	return p.started
}

// Calls reports how many times kind has been invoked.
func (p *Providers) Calls(kind session.StageKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[kind]
}

// LastCall returns the inputs of the most recent call to kind.
func (p *Providers) LastCall(kind session.StageKind) (Call, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	calls := p.inputs[kind]
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[len(calls)-1], true
}

func (p *Providers) enter(ctx context.Context, kind session.StageKind, call Call) (int, error) {
	p.mu.Lock()
	p.calls[kind]++
	n := p.calls[kind]
	p.inputs[kind] = append(p.inputs[kind], call)
	var failure error
	if queued := p.failures[kind]; len(queued) > 0 {
		failure = queued[0]
		p.failures[kind] = queued[1:]
	}
	block := p.blocks[kind]
	p.mu.Unlock()

	select {
	case p.started <- kind:
	default:
	}

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return n, ctx.Err()
		}
	}
	if failure != nil {
		return n, failure
	}
	return n, ctx.Err()
}

// Synthesize implements provider.Narrator.
func (p *Providers) Synthesize(ctx context.Context, script string, voice session.VoiceID, duration session.Duration) (artifact.Item, error) {
	n, err := p.enter(ctx, session.StageAudio, Call{Script: script, Voice: voice, Duration: duration})
	if err != nil {
		return artifact.Item{}, err
	}
	return artifact.Item{
		ContentType: artifact.ContentTypeWAV,
		Payload:     []byte(fmt.Sprintf("audio-%d", n)),
		Metadata:    artifact.Metadata{DurationSeconds: float64(duration)},
	}, nil
}

// Generate implements provider.ImageGenerator.
func (p *Providers) Generate(ctx context.Context, script string, count int) ([]artifact.Item, error) {
	n, err := p.enter(ctx, session.StageImages, Call{Script: script, Count: count})
	if err != nil {
		return nil, err
	}
	items := make([]artifact.Item, count)
	for i := range items {
		items[i] = artifact.Item{
			ContentType: artifact.ContentTypePNG,
			Payload:     []byte(fmt.Sprintf("image-%d-%d", n, i)),
			Metadata:    artifact.Metadata{Width: 4, Height: 3, Label: fmt.Sprintf("image %d", i+1)},
		}
	}
	return items, nil
}

// SelectThumbnail implements provider.ThumbnailSelector.
func (p *Providers) SelectThumbnail(ctx context.Context, images []artifact.Item) (artifact.Item, error) {
	if _, err := p.enter(ctx, session.StageThumbnail, Call{Images: images}); err != nil {
		return artifact.Item{}, err
	}
	thumb := images[0]
	thumb.Payload = append([]byte("thumb:"), images[0].Payload...)
	return thumb, nil
}

// Assemble implements provider.VideoAssembler.
func (p *Providers) Assemble(ctx context.Context, audio artifact.Item, images []artifact.Item, thumbnail artifact.Item, duration session.Duration) (artifact.Item, error) {
	n, err := p.enter(ctx, session.StageFinalVideo, Call{Audio: audio, Images: images, Thumbnail: thumbnail, Duration: duration})
	if err != nil {
		return artifact.Item{}, err
	}
	return artifact.Item{
		ContentType: artifact.ContentTypeJSON,
		Payload:     []byte(fmt.Sprintf(`{"video":%d}`, n)),
		Metadata:    artifact.Metadata{DurationSeconds: float64(duration)},
	}, nil
}

// Write implements provider.ScriptWriter.
func (p *Providers) Write(_ context.Context, title string) (string, error) {
	return "Script about " + title, nil
}

// Analyze implements provider.ChannelAnalyzer with limit references whose
// views decrease by index.
func (p *Providers) Analyze(ctx context.Context, channelURL string, limit int) ([]session.Reference, error) {
	if _, err := p.enter(ctx, KindChannel, Call{Channel: channelURL, Count: limit}); err != nil {
		return nil, err
	}
	limit = max(limit, 0)
	refs := make([]session.Reference, limit)
	for i := range refs {
		refs[i] = session.Reference{
			ID:    fmt.Sprintf("ref-%d", i+1),
			Title: fmt.Sprintf("Reference %d", i+1),
			Views: int64(1000 * (limit - i)),
		}
	}
	return refs, nil
}

// Publish implements provider.Publisher.
func (p *Providers) Publish(ctx context.Context, req provider.PublishRequest) (string, error) {
	n, err := p.enter(ctx, KindPublish, Call{Title: req.Title, Version: req.VideoVersion, Thumbnail: req.Thumbnail})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://videos.example/%s/%d", req.SessionID, n), nil
}
