package orchestrator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"reelforge/internal/artifact"
	"reelforge/internal/orchestrator"
	"reelforge/internal/provider"
	"reelforge/internal/session"
	"reelforge/internal/testsupport"
)

type harness struct {
	t         *testing.T
	orch      *orchestrator.Orchestrator
	providers *testsupport.Providers
	store     *artifact.MemoryStore

	mu     sync.Mutex
	events []orchestrator.Event
}

func newHarness(t *testing.T, opts ...orchestrator.Option) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		providers: testsupport.NewProviders(),
		store:     artifact.NewMemoryStore(),
	}
	gateway := provider.NewGateway(h.providers.Set(), provider.WithTimeout(5*time.Second))
	h.orch = orchestrator.New(gateway, h.store, opts...)
	h.orch.Subscribe(func(evt orchestrator.Event) {
		h.mu.Lock()
		h.events = append(h.events, evt)
		h.mu.Unlock()
	})
	return h
}

func (h *harness) create(script string, duration session.Duration, voice session.VoiceID) session.Snapshot {
	h.t.Helper()
	snap, err := h.orch.Create(context.Background(), orchestrator.CreateInput{Script: script, Duration: duration, Voice: voice})
	if err != nil {
		h.t.Fatalf("Create: %v", err)
	}
	return snap
}

func (h *harness) ready() session.Snapshot {
	h.t.Helper()
	return h.create("How to save money", 30, "voice2")
}

func (h *harness) advance(id string) session.Snapshot {
	h.t.Helper()
	snap, err := h.orch.Advance(context.Background(), id)
	if err != nil {
		h.t.Fatalf("Advance: %v", err)
	}
	return snap
}

func (h *harness) snapshot(id string) session.Snapshot {
	h.t.Helper()
	snap, err := h.orch.Snapshot(id)
	if err != nil {
		h.t.Fatalf("Snapshot: %v", err)
	}
	return snap
}

func (h *harness) recorded() []orchestrator.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]orchestrator.Event(nil), h.events...)
}

// waitStarted blocks until a provider call for kind begins.
func (h *harness) waitStarted(kind session.StageKind) {
	h.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-h.providers.Started():
			if got == kind {
				return
			}
		case <-deadline:
			h.t.Fatalf("timed out waiting for %s to start", kind)
		}
	}
}

type result struct {
	snap session.Snapshot
	err  error
}

func async(fn func() (session.Snapshot, error)) <-chan result {
	ch := make(chan result, 1)
	go func() {
		snap, err := fn()
		ch <- result{snap: snap, err: err}
	}()
	return ch
}

func await(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for operation")
		return result{}
	}
}

func assertStage(t *testing.T, snap session.Snapshot, kind session.StageKind, status session.Status, version int) {
	t.Helper()
	rec := snap.Stage(kind)
	if rec.Status != status || rec.Version != version {
		t.Fatalf("stage %s: got %s v%d, want %s v%d", kind, rec.Status, rec.Version, status, version)
	}
}
