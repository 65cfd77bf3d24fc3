package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lherron/tcmerge/internal/domain"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primary.lock")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Lock file should be removed on release")
	}
}

func TestAcquireContended(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primary.lock")

	held, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer held.Release()

	if _, err := Acquire(path); !errors.Is(err, domain.ErrConcurrentMerge) {
		t.Fatalf("Expected ErrConcurrentMerge, got %v", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primary.lock")

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	second, err := Acquire(path)
	if err != nil {
		t.Fatalf("Reacquire failed: %v", err)
	}
	second.Release()
}

func TestReleaseNil(t *testing.T) {
	var lock *Lock
	if err := lock.Release(); err != nil {
		t.Fatalf("Releasing a nil lock should be safe, got %v", err)
	}
}
