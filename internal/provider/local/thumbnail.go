package local

import (
	"context"
	"errors"

	"reelforge/internal/artifact"
)

// ThumbnailSelector uses the first generated image as the thumbnail.
type ThumbnailSelector struct{}

// SelectThumbnail implements provider.ThumbnailSelector.
func (ThumbnailSelector) SelectThumbnail(ctx context.Context, images []artifact.Item) (artifact.Item, error) {
	if err := ctx.Err(); err != nil {
		return artifact.Item{}, err
	}
	if len(images) == 0 {
		return artifact.Item{}, errors.New("no images to select a thumbnail from")
	}
	first := images[0]
	thumb := artifact.Item{
		ContentType: first.ContentType,
		Payload:     append([]byte(nil), first.Payload...),
		Metadata:    first.Metadata,
	}
	thumb.Metadata.Label = "thumbnail"
	return thumb, nil
}
