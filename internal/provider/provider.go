package provider

import (
	"context"

	"reelforge/internal/artifact"
	"reelforge/internal/session"
)

// Narrator turns a script into narration audio.
type Narrator interface {
	Synthesize(ctx context.Context, script string, voice session.VoiceID, duration session.Duration) (artifact.Item, error)
}

// ImageGenerator produces count images illustrating the script.
type ImageGenerator interface {
	Generate(ctx context.Context, script string, count int) ([]artifact.Item, error)
}

// ThumbnailSelector picks or derives a thumbnail from the generated images.
type ThumbnailSelector interface {
	SelectThumbnail(ctx context.Context, images []artifact.Item) (artifact.Item, error)
}

// VideoAssembler combines narration, images, and thumbnail into the final video.
type VideoAssembler interface {
	Assemble(ctx context.Context, audio artifact.Item, images []artifact.Item, thumbnail artifact.Item, duration session.Duration) (artifact.Item, error)
}

// ScriptWriter drafts a narration script from a title.
type ScriptWriter interface {
	Write(ctx context.Context, title string) (string, error)
}

// ChannelAnalyzer finds the most viewed videos of a channel to use as
// references for a new session.
type ChannelAnalyzer interface {
	Analyze(ctx context.Context, channelURL string, limit int) ([]session.Reference, error)
}

// PublishRequest is a finished video handed to a Publisher.
type PublishRequest struct {
	SessionID    string
	Title        string
	Description  string
	Video        artifact.Item
	VideoVersion int
	Thumbnail    artifact.Item
}

// Publisher uploads a finished video and returns where it can be watched.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (url string, err error)
}

// CredentialSource reports whether provider credentials are present.
type CredentialSource interface {
	Configured() bool
}

// HealthChecker is implemented by providers that can report readiness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}

// Health summarizes the readiness of one provider.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Set bundles one provider per stage plus the collaborators used around the
// pipeline.
type Set struct {
	Narrator   Narrator
	Images     ImageGenerator
	Thumbnails ThumbnailSelector
	Assembler  VideoAssembler
	Scripts    ScriptWriter
	Channels   ChannelAnalyzer
	Publisher  Publisher
}

// StaticCredentials is a CredentialSource with a fixed answer.
type StaticCredentials bool

// Configured implements CredentialSource.
func (s StaticCredentials) Configured() bool { return bool(s) }
