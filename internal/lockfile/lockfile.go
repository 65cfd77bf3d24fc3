// Package lockfile serializes merge runs against the same primary database.
// Two simultaneous merges could both consume the same conflict files and
// both replace the primary, so the second acquirer fails fast instead.
package lockfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/lherron/tcmerge/internal/domain"
)

// Lock is a held advisory file lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive non-blocking flock on path, creating it if
// needed. Returns domain.ErrConcurrentMerge if another process holds it.
func Acquire(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrConcurrentMerge)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	return &Lock{file: file, path: path}, nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// Remove before unlocking so a waiter never grabs a deleted inode.
	os.Remove(l.path)
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	l.file = nil
	return err
}
