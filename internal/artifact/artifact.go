package artifact

import (
	"errors"
	"fmt"
	"time"

	"reelforge/internal/services"
	"reelforge/internal/session"
)

// Common content types produced by the bundled providers.
const (
	ContentTypeWAV  = "audio/wav"
	ContentTypePNG  = "image/png"
	ContentTypeJSON = "application/json"
)

// Extension returns the file extension for a content type, ".bin" when the
// type is not one of the above.
func Extension(contentType string) string {
	switch contentType {
	case ContentTypeWAV:
		return ".wav"
	case ContentTypePNG:
		return ".png"
	case ContentTypeJSON:
		return ".json"
	default:
		return ".bin"
	}
}

var (
	// ErrNotFound reports a missing session, stage, or version.
	ErrNotFound = fmt.Errorf("artifact %w", services.ErrNotFound)
	// ErrVersionExists reports an attempt to overwrite a stored version.
	ErrVersionExists = errors.New("artifact version already stored")
)

// Metadata describes a payload without decoding it.
type Metadata struct {
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	Label           string  `json:"label,omitempty"`
}

// Item is one opaque payload. Audio, thumbnail, and final video artifacts
// carry a single item; image artifacts carry one item per image.
type Item struct {
	ContentType string   `json:"content_type"`
	Payload     []byte   `json:"-"`
	Metadata    Metadata `json:"metadata"`
}

// Size returns the payload length in bytes.
func (i Item) Size() int {
	return len(i.Payload)
}

// Artifact is the stored output of one stage execution.
type Artifact struct {
	Ref       session.ArtifactRef `json:"ref"`
	Items     []Item              `json:"items"`
	CreatedAt time.Time           `json:"created_at"`
}

// Primary returns the first item, which is the whole artifact for
// single-item stages.
func (a Artifact) Primary() (Item, bool) {
	if len(a.Items) == 0 {
		return Item{}, false
	}
	return a.Items[0], true
}

// TotalBytes sums payload sizes across items.
func (a Artifact) TotalBytes() int64 {
	var total int64
	for _, item := range a.Items {
		total += int64(item.Size())
	}
	return total
}

// Clone deep-copies items and payloads.
func (a Artifact) Clone() Artifact {
	cp := a
	if a.Items != nil {
		cp.Items = make([]Item, len(a.Items))
		for i, item := range a.Items {
			cp.Items[i] = item
			if item.Payload != nil {
				cp.Items[i].Payload = append([]byte(nil), item.Payload...)
			}
		}
	}
	return cp
}

// ValidateKey checks a (session, stage, version) key before a Put.
func ValidateKey(sessionID string, stage session.StageKind, version int) error {
	if sessionID == "" {
		return errors.New("artifact: session id is required")
	}
	if _, ok := session.ParseStageKind(string(stage)); !ok {
		return fmt.Errorf("artifact: unknown stage %q", stage)
	}
	if version < 1 {
		return fmt.Errorf("artifact: version must be positive, got %d", version)
	}
	return nil
}
