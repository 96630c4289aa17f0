// Package pidlock serializes recomputation runs with an advisory file
// lock. Two concurrent full recomputations would interleave their writes,
// so the second run must fail fast instead of starting.
package pidlock

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

var ErrLockHeld = errors.New("another recomputation is already running")

type Lock struct {
	flock *flock.Flock
	path  string
}

// Acquire takes the lock or returns ErrLockHeld without blocking, and
// writes the holder's pid into the file for operators.
func Acquire(path string) (*Lock, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLockHeld
	}

	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("failed to write pid to %s: %w", path, err)
	}
	return &Lock{flock: fl, path: path}, nil
}

func (l *Lock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.path, err)
	}
	os.Remove(l.path)
	return nil
}
