package local

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"reelforge/internal/artifact"
	"reelforge/internal/provider"
	"reelforge/internal/session"
)

const (
	sampleRate    = 8000
	bitsPerSample = 16
	channels      = 1
)

// Narrator renders silent narration of the requested length.
type Narrator struct {
	Delay time.Duration
}

// Synthesize implements provider.Narrator.
func (n *Narrator) Synthesize(ctx context.Context, script string, voice session.VoiceID, duration session.Duration) (artifact.Item, error) {
	if strings.TrimSpace(script) == "" {
		return artifact.Item{}, errors.New("narration script is empty")
	}
	if err := wait(ctx, n.Delay); err != nil {
		return artifact.Item{}, err
	}
	payload := silentWAV(int(duration))
	return artifact.Item{
		ContentType: artifact.ContentTypeWAV,
		Payload:     payload,
		Metadata: artifact.Metadata{
			DurationSeconds: float64(duration),
			Label:           string(voice),
		},
	}, nil
}

// HealthCheck implements provider.HealthChecker.
func (n *Narrator) HealthCheck(context.Context) provider.Health {
	return provider.Healthy("narrator")
}

func silentWAV(seconds int) []byte {
	if seconds < 0 {
		seconds = 0
	}
	blockAlign := channels * bitsPerSample / 8
	dataSize := seconds * sampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
