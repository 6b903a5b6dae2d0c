package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"time"

	"reelforge/internal/artifact"
	"reelforge/internal/provider"
)

const (
	defaultWidth  = 320
	defaultHeight = 180
)

// ImageGenerator renders one solid-colour frame per requested image. Each
// call advances a generation counter so regenerated sets differ from earlier
// ones.
type ImageGenerator struct {
	Width  int
	Height int
	Delay  time.Duration

	generation atomic.Int64
}

// Generate implements provider.ImageGenerator.
func (g *ImageGenerator) Generate(ctx context.Context, script string, count int) ([]artifact.Item, error) {
	if count <= 0 {
		return nil, errors.New("image count must be positive")
	}
	if err := wait(ctx, g.Delay); err != nil {
		return nil, err
	}
	width, height := g.Width, g.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	round := g.generation.Add(1)

	items := make([]artifact.Item, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		payload, err := renderFrame(width, height, frameColor(script, round, i))
		if err != nil {
			return nil, fmt.Errorf("render image %d: %w", i+1, err)
		}
		items = append(items, artifact.Item{
			ContentType: artifact.ContentTypePNG,
			Payload:     payload,
			Metadata: artifact.Metadata{
				Width:  width,
				Height: height,
				Label:  fmt.Sprintf("image %d", i+1),
			},
		})
	}
	return items, nil
}

// HealthCheck implements provider.HealthChecker.
func (g *ImageGenerator) HealthCheck(context.Context) provider.Health {
	return provider.Healthy("images")
}

func frameColor(script string, round int64, index int) color.RGBA {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%d|%d", script, round, index)
	sum := h.Sum32()
	return color.RGBA{R: uint8(sum >> 16), G: uint8(sum >> 8), B: uint8(sum), A: 0xff}
}

func renderFrame(width, height int, fill color.RGBA) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
