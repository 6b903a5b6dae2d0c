// Package sessionlock serialises control operations on one session across
// processes. The CLI holds a session's lock for the duration of a command so
// two terminals cannot advance the same session at once.
package sessionlock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"reelforge/internal/services"
)

// Lock is a held per-session file lock.
type Lock struct {
	path string
	fl   *flock.Flock
}

// Acquire takes the lock for sessionID under dir without waiting. A lock
// already held elsewhere yields services.ErrConcurrentOperation.
func Acquire(dir, sessionID string) (*Lock, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) {
		return nil, services.Wrap(services.ErrValidation, "", "lock session", fmt.Sprintf("invalid session id %q", sessionID), nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := filepath.Join(dir, sessionID+".lock")
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConcurrentOperation, "", "lock session",
			"another reelforge process is operating on this session", nil)
	}
	return &Lock{path: path, fl: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks the session. The lock file stays on disk; removing it
// would let a waiter lock an unlinked inode while a newcomer locks a fresh
// file under the same name.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release session lock: %w", err)
	}
	l.fl = nil
	return nil
}
