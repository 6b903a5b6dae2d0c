package logs_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelforge/internal/logs"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelforge.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	var out bytes.Buffer
	if err := logs.Tail(context.Background(), path, 2, false, &out); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if out.String() != "b\nc\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestTailMissingFile(t *testing.T) {
	var out bytes.Buffer
	if err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "none.log"), 10, false, &out); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestTailFollowPicksUpAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelforge.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- logs.Tail(ctx, path, 5, true, out) }()

	time.Sleep(50 * time.Millisecond)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := file.WriteString("next\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	file.Close()

	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(out.String(), "next") {
		if time.Now().After(deadline) {
			t.Fatalf("appended line not seen, output %q", out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Tail returned %v", err)
	}
	if !strings.HasPrefix(out.String(), "start\n") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
