package local

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/provider"
)

// Options tunes the local providers.
type Options struct {
	ImageWidth  int
	ImageHeight int
	// Delay simulates provider latency; calls honour context cancellation
	// while waiting.
	Delay time.Duration
	// PublishDir receives published videos.
	PublishDir string
}

// Providers returns a provider.Set backed entirely by this package.
func Providers(opts Options) provider.Set {
	return provider.Set{
		Narrator:   &Narrator{Delay: opts.Delay},
		Images:     &ImageGenerator{Width: opts.ImageWidth, Height: opts.ImageHeight, Delay: opts.Delay},
		Thumbnails: ThumbnailSelector{},
		Assembler:  &Assembler{Delay: opts.Delay},
		Scripts:    ScriptWriter{},
		Channels:   ChannelAnalyzer{},
		Publisher:  &Publisher{Dir: opts.PublishDir},
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewGateway builds a gateway over the local providers using the frame size
// and stage timeout from cfg. Published videos land in the state directory.
func NewGateway(cfg *config.Config, logger *slog.Logger) *provider.Gateway {
	set := Providers(Options{
		ImageWidth:  cfg.Generation.ImageWidth,
		ImageHeight: cfg.Generation.ImageHeight,
		PublishDir:  filepath.Join(cfg.Paths.StateDir, "published"),
	})
	return provider.NewGateway(set,
		provider.WithTimeout(time.Duration(cfg.Workflow.StageTimeout)*time.Second),
		provider.WithLogger(logger),
	)
}
