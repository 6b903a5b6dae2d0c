package local

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"reelforge/internal/artifact"
	"reelforge/internal/session"
)

// Manifest describes how the final video is put together.
type Manifest struct {
	DurationSeconds int             `json:"duration_seconds"`
	AudioBytes      int             `json:"audio_bytes"`
	ThumbnailBytes  int             `json:"thumbnail_bytes"`
	Frames          []ManifestFrame `json:"frames"`
}

// ManifestFrame is one image shown for an interval of the narration.
type ManifestFrame struct {
	Index int     `json:"index"`
	Label string  `json:"label,omitempty"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Assembler emits a JSON manifest in place of an encoded video.
type Assembler struct {
	Delay time.Duration
}

// Assemble implements provider.VideoAssembler.
func (a *Assembler) Assemble(ctx context.Context, audio artifact.Item, images []artifact.Item, thumbnail artifact.Item, duration session.Duration) (artifact.Item, error) {
	if len(audio.Payload) == 0 {
		return artifact.Item{}, errors.New("narration audio is empty")
	}
	if len(images) == 0 {
		return artifact.Item{}, errors.New("no images to assemble")
	}
	if err := wait(ctx, a.Delay); err != nil {
		return artifact.Item{}, err
	}

	slot := float64(duration) / float64(len(images))
	manifest := Manifest{
		DurationSeconds: int(duration),
		AudioBytes:      len(audio.Payload),
		ThumbnailBytes:  len(thumbnail.Payload),
		Frames:          make([]ManifestFrame, 0, len(images)),
	}
	for i, img := range images {
		manifest.Frames = append(manifest.Frames, ManifestFrame{
			Index: i,
			Label: img.Metadata.Label,
			Start: slot * float64(i),
			End:   slot * float64(i+1),
		})
	}
	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return artifact.Item{}, err
	}
	return artifact.Item{
		ContentType: artifact.ContentTypeJSON,
		Payload:     payload,
		Metadata: artifact.Metadata{
			DurationSeconds: float64(duration),
			Width:           thumbnail.Metadata.Width,
			Height:          thumbnail.Metadata.Height,
			Label:           "final video manifest",
		},
	}, nil
}
