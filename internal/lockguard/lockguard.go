// Package lockguard enforces the one-running-instance rule with an
// advisory exclusive lock on a well-known file. Acquisition never
// blocks: a second instance fails immediately and learns who holds the
// lock from the annotation written by the winner.
package lockguard

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockHeld is returned when another instance already owns the lock.
// The wrapping error carries the current holder's annotation.
var ErrLockHeld = errors.New("job lock already held")

type Lock struct {
	path     string
	fl       *flock.Flock
	released bool
}

// Acquire opens or creates the lock file and attempts a non-blocking
// exclusive lock. Each call opens a fresh descriptor, so a process that
// already holds the lock fails on a second attempt like any other
// contender would.
func Acquire(path string) (*Lock, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		annotation, _ := os.ReadFile(path)
		holder := strings.TrimSpace(string(annotation))
		if holder == "" {
			holder = "unknown holder"
		}
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, holder)
	}

	annotation := fmt.Sprintf("Started by pid %d at %s\n",
		os.Getpid(), time.Now().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(annotation), 0644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("failed to annotate lock %s: %w", path, err)
	}

	return &Lock{path: path, fl: fl}, nil
}

// Release drops the lock and removes the lock file. It must run on
// every exit path; calling it again is a no-op.
func (l *Lock) Release() error {
	if l.released {
		return nil
	}
	l.released = true

	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.path, err)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file %s: %w", l.path, err)
	}
	return nil
}
