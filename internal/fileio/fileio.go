// Package fileio writes files atomically and serializes writers from
// different processes with lock files.
package fileio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

// DefaultPerm is the mode of newly created files.
const DefaultPerm os.FileMode = 0o644

// Lock timing.
const (
	DefaultLockTimeout = 10 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
)

// ErrLockTimeout is returned when another process holds a lock for too
// long.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// WriteFile replaces path with data through a temporary file and a rename,
// so readers never see a partial file. An existing file keeps its mode;
// a new file gets DefaultPerm. Missing parent directories are created.
func WriteFile(path string, data []byte) error {
	perm := DefaultPerm
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return nil
}

// Lock is an exclusive inter-process lock held through a lock file.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock at path, retrying until timeout. A zero timeout
// means DefaultLockTimeout.
func Acquire(path string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	fl := flock.New(path)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release drops the lock. The lock file is left in place.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
