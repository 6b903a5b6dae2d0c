package local_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelforge/internal/artifact"
	"reelforge/internal/provider"
	"reelforge/internal/provider/local"
)

func TestNarratorProducesWAVOfRequestedLength(t *testing.T) {
	n := &local.Narrator{}
	item, err := n.Synthesize(context.Background(), "hello", "voice1", 30)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if item.ContentType != artifact.ContentTypeWAV {
		t.Fatalf("unexpected content type %q", item.ContentType)
	}
	if !bytes.HasPrefix(item.Payload, []byte("RIFF")) {
		t.Fatal("expected RIFF header")
	}
	if want := 44 + 30*8000*2; len(item.Payload) != want {
		t.Fatalf("payload size = %d, want %d", len(item.Payload), want)
	}
	if item.Metadata.DurationSeconds != 30 {
		t.Fatalf("unexpected duration metadata %v", item.Metadata.DurationSeconds)
	}
}

func TestImageGeneratorProducesDecodablePNGs(t *testing.T) {
	g := &local.ImageGenerator{Width: 16, Height: 9}
	first, err := g.Generate(context.Background(), "script", 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("expected 5 images, got %d", len(first))
	}
	img, err := png.Decode(bytes.NewReader(first[0].Payload))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 9 {
		t.Fatalf("unexpected bounds %v", b)
	}

	second, err := g.Generate(context.Background(), "script", 5)
	if err != nil {
		t.Fatalf("Generate again: %v", err)
	}
	if bytes.Equal(first[0].Payload, second[0].Payload) {
		t.Fatal("expected regenerated images to differ")
	}
}

func TestThumbnailIsFirstImage(t *testing.T) {
	images := []artifact.Item{
		{ContentType: artifact.ContentTypePNG, Payload: []byte{1}},
		{ContentType: artifact.ContentTypePNG, Payload: []byte{2}},
	}
	thumb, err := local.ThumbnailSelector{}.SelectThumbnail(context.Background(), images)
	if err != nil {
		t.Fatalf("SelectThumbnail: %v", err)
	}
	if !bytes.Equal(thumb.Payload, []byte{1}) || thumb.Metadata.Label != "thumbnail" {
		t.Fatalf("unexpected thumbnail %+v", thumb)
	}
	if _, err := (local.ThumbnailSelector{}).SelectThumbnail(context.Background(), nil); err == nil {
		t.Fatal("expected error without images")
	}
}

func TestAssemblerWritesManifest(t *testing.T) {
	a := &local.Assembler{}
	audio := artifact.Item{Payload: make([]byte, 100)}
	images := []artifact.Item{{Payload: []byte{1}}, {Payload: []byte{2}}}
	item, err := a.Assemble(context.Background(), audio, images, artifact.Item{Payload: []byte{1}}, 20)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	var manifest local.Manifest
	if err := json.Unmarshal(item.Payload, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if manifest.DurationSeconds != 20 || len(manifest.Frames) != 2 || manifest.Frames[1].Start != 10 {
		t.Fatalf("unexpected manifest %+v", manifest)
	}
}

func TestDelayHonoursCancellation(t *testing.T) {
	n := &local.Narrator{Delay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := n.Synthesize(ctx, "hello", "voice1", 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScriptWriterUsesTitle(t *testing.T) {
	script, err := local.ScriptWriter{}.Write(context.Background(), "How to save money")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(script, "How to save money") {
		t.Fatalf("expected title in script, got %q", script)
	}
	if _, err := (local.ScriptWriter{}).Write(context.Background(), " "); err == nil {
		t.Fatal("expected error for blank title")
	}
}

func TestChannelAnalyzerIsStableAndOrderedByViews(t *testing.T) {
	a := local.ChannelAnalyzer{}
	first, err := a.Analyze(context.Background(), "https://www.youtube.com/@money/videos", 3)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 references, got %d", len(first))
	}
	for i := 1; i < len(first); i++ {
		if first[i].Views > first[i-1].Views {
			t.Fatalf("references not ordered by views: %+v", first)
		}
	}
	if !strings.HasPrefix(first[0].ID, "@money-") {
		t.Fatalf("unexpected reference id %q", first[0].ID)
	}

	again, err := a.Analyze(context.Background(), "https://www.youtube.com/@money", 3)
	if err != nil {
		t.Fatalf("Analyze again: %v", err)
	}
	for i := range first {
		if first[i] != again[i] {
			t.Fatalf("analysis changed between calls: %+v vs %+v", first[i], again[i])
		}
	}

	for _, bad := range []string{"", "not a url", "https://youtube.com/"} {
		if _, err := a.Analyze(context.Background(), bad, 3); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestPublisherWritesVideoAndThumbnail(t *testing.T) {
	dir := t.TempDir()
	p := &local.Publisher{Dir: dir}
	url, err := p.Publish(context.Background(), provider.PublishRequest{
		SessionID:    "s1",
		Title:        "Budgeting",
		Video:        artifact.Item{ContentType: artifact.ContentTypeJSON, Payload: []byte(`{"video":1}`)},
		VideoVersion: 2,
		Thumbnail:    artifact.Item{ContentType: artifact.ContentTypePNG, Payload: []byte{1, 2}},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	videoPath := filepath.Join(dir, "s1-v2.json")
	if url != "file://"+filepath.ToSlash(videoPath) {
		t.Fatalf("unexpected url %q", url)
	}
	got, err := os.ReadFile(videoPath)
	if err != nil || string(got) != `{"video":1}` {
		t.Fatalf("video copy = %q, %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "s1-v2-thumbnail.png")); err != nil {
		t.Fatalf("expected thumbnail copy: %v", err)
	}

	if _, err := p.Publish(context.Background(), provider.PublishRequest{SessionID: "s1"}); err == nil {
		t.Fatal("expected error for empty video")
	}
}
