package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunLock_AcquireAndRelease(t *testing.T) {
	reportsDir := filepath.Join(t.TempDir(), "reports")

	lock := NewRunLock(reportsDir)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(lock.Path()); err != nil {
		t.Errorf("lock file should exist: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("unexpected error on release: %v", err)
	}
}

func TestRunLock_AlreadyLocked(t *testing.T) {
	reportsDir := t.TempDir()

	first := NewRunLock(reportsDir)
	if err := first.Acquire(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer first.Release()

	second := NewRunLock(reportsDir)
	err := second.Acquire()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.HasPrefix(err.Error(), "another run is already writing to") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestRunLock_ReacquireAfterRelease(t *testing.T) {
	reportsDir := t.TempDir()

	first := NewRunLock(reportsDir)
	if err := first.Acquire(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := NewRunLock(reportsDir)
	if err := second.Acquire(); err != nil {
		t.Fatalf("expected lock to be free after release, got: %v", err)
	}
	second.Release()
}

func TestRunLock_ReleaseUnheldIsNoop(t *testing.T) {
	lock := NewRunLock(t.TempDir())
	if err := lock.Release(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}
