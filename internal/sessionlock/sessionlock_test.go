package sessionlock_test

import (
	"errors"
	"os"
	"testing"

	"reelforge/internal/services"
	"reelforge/internal/sessionlock"
)

func TestAcquireIsExclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := sessionlock.Acquire(dir, "abc")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := sessionlock.Acquire(dir, "abc"); !errors.Is(err, services.ErrConcurrentOperation) {
		t.Fatalf("expected concurrent operation error, got %v", err)
	}

	other, err := sessionlock.Acquire(dir, "def")
	if err != nil {
		t.Fatalf("expected independent session to lock, got %v", err)
	}
	defer other.Release()

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := sessionlock.Acquire(dir, "abc")
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	_ = again.Release()
}

func TestAcquireRejectsPathLikeIDs(t *testing.T) {
	for _, id := range []string{"", "../escape", `a\b`} {
		if _, err := sessionlock.Acquire(t.TempDir(), id); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("id %q: expected validation error, got %v", id, err)
		}
	}
}

func TestReleaseKeepsLockFile(t *testing.T) {
	dir := t.TempDir()
	lock, err := sessionlock.Acquire(dir, "abc")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(lock.Path()); err != nil {
		t.Fatalf("expected lock file to remain after release: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}

	again, err := sessionlock.Acquire(dir, "abc")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	defer again.Release()
	if again.Path() != lock.Path() {
		t.Fatalf("lock path changed: %s vs %s", again.Path(), lock.Path())
	}
}
