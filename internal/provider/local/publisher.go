package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"reelforge/internal/artifact"
	"reelforge/internal/provider"
)

// Publisher copies the final video and thumbnail into Dir and reports the
// file URL of the video.
type Publisher struct {
	Dir string
}

// Publish implements provider.Publisher. Publishing the same video version
// again overwrites the earlier copy.
func (p *Publisher) Publish(ctx context.Context, req provider.PublishRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.Dir == "" {
		return "", errors.New("publish directory is not set")
	}
	if len(req.Video.Payload) == 0 {
		return "", errors.New("video is empty")
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create publish directory: %w", err)
	}

	base := fmt.Sprintf("%s-v%d", req.SessionID, req.VideoVersion)
	videoPath := filepath.Join(p.Dir, base+artifact.Extension(req.Video.ContentType))
	if err := os.WriteFile(videoPath, req.Video.Payload, 0o644); err != nil {
		return "", fmt.Errorf("write video: %w", err)
	}
	if len(req.Thumbnail.Payload) > 0 {
		thumbPath := filepath.Join(p.Dir, base+"-thumbnail"+artifact.Extension(req.Thumbnail.ContentType))
		if err := os.WriteFile(thumbPath, req.Thumbnail.Payload, 0o644); err != nil {
			return "", fmt.Errorf("write thumbnail: %w", err)
		}
	}
	abs, err := filepath.Abs(videoPath)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}
