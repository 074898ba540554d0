package plan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".crewflow.lock"

// RunLock holds an exclusive advisory lock on a reports directory so that two
// batch runs never write the same reports concurrently.
type RunLock struct {
	path string
	fl   *flock.Flock
}

// NewRunLock creates a lock manager for the given reports directory.
func NewRunLock(reportsDir string) *RunLock {
	path := filepath.Join(reportsDir, lockFileName)
	return &RunLock{
		path: path,
		fl:   flock.New(path),
	}
}

// Acquire takes the lock without blocking.
// Returns an error if another process already holds it.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	locked, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another run is already writing to %s", filepath.Dir(l.path))
	}
	return nil
}

// Release drops the lock. Calling it on an unheld lock is a no-op.
func (l *RunLock) Release() error {
	if !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

// Path returns the lock file location.
func (l *RunLock) Path() string {
	return l.path
}
