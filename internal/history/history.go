// Package history backs up consumed databases before a merge replaces or
// deletes them, and prunes old backups.
package history

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DefaultKeep is the number of backup directories retained by default.
const DefaultKeep = 100

const dirLayout = "2006-01-02_15-04-05"

// Archive manages timestamped backup directories under a state directory.
type Archive struct {
	StateDir string
}

// Backup copies the given files into a new directory named after now (UTC)
// and returns its path. A merge is only destructive after Backup succeeds.
func (a *Archive) Backup(now time.Time, paths []string) (string, error) {
	dir := filepath.Join(a.StateDir, now.UTC().Format(dirLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	for _, path := range paths {
		dest := filepath.Join(dir, filepath.Base(path))
		if err := copyFile(path, dest); err != nil {
			return "", fmt.Errorf("failed to back up %s: %w", path, err)
		}
	}
	return dir, nil
}

// Prune removes the oldest backup directories beyond keep, returning the
// paths it removed. Entries that do not look like backup directories are
// left alone.
func (a *Archive) Prune(keep int) ([]string, error) {
	if keep <= 0 {
		keep = DefaultKeep
	}

	entries, err := os.ReadDir(a.StateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var stamps []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := time.Parse(dirLayout, entry.Name()); err != nil {
			continue
		}
		stamps = append(stamps, entry.Name())
	}
	if len(stamps) <= keep {
		return nil, nil
	}

	// Lexical order is chronological order for this layout.
	sort.Strings(stamps)

	var removed []string
	for _, name := range stamps[:len(stamps)-keep] {
		path := filepath.Join(a.StateDir, name)
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
