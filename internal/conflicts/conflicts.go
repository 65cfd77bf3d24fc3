// Package conflicts locates the primary task database and its sibling
// sync-conflict copies by the Syncthing naming convention.
package conflicts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/lherron/tcmerge/internal/domain"
)

// PrimaryName is the filename of the active database in the task directory.
const PrimaryName = "taskchampion.sqlite3"

// Syncthing names the losing copy
// taskchampion.sync-conflict-<YYYYMMDD-HHMMSS>-<device>.sqlite3.
var namePattern = regexp.MustCompile(`^taskchampion\.sync-conflict-(\d{8}-\d{6})-([A-Z0-9]{7})\.sqlite3$`)

const stampLayout = "20060102-150405"

// ConflictFile is one discovered sync-conflict copy.
type ConflictFile struct {
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"` // when the sync layer detected the conflict
	Device    string    `json:"device"`    // short id of the device that lost the conflict
}

// Discovery is the result of scanning a task directory.
type Discovery struct {
	Primary   string         `json:"primary"`
	Conflicts []ConflictFile `json:"conflicts"`
}

// MatchName reports whether a filename is a sync-conflict copy.
func MatchName(name string) bool {
	return namePattern.MatchString(name)
}

// ParseName extracts the conflict timestamp and device id from a
// sync-conflict filename.
func ParseName(name string) (time.Time, string, error) {
	caps := namePattern.FindStringSubmatch(name)
	if caps == nil {
		return time.Time{}, "", fmt.Errorf("not a sync-conflict filename: %s", name)
	}
	ts, err := time.Parse(stampLayout, caps[1])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid conflict timestamp in %s: %w", name, err)
	}
	return ts.UTC(), caps[2], nil
}

// Discover scans taskDir for the primary database and its conflict copies.
// Conflicts are returned ordered by (timestamp, device); that order assigns
// replica ids, so merge tie-breaks are reproducible across runs. Returns
// domain.ErrNotFound if the primary does not exist.
func Discover(taskDir string) (*Discovery, error) {
	primary := filepath.Join(taskDir, PrimaryName)
	if _, err := os.Stat(primary); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", primary, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", primary, err)
	}

	entries, err := os.ReadDir(taskDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", taskDir, err)
	}

	disc := &Discovery{Primary: primary}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, device, err := ParseName(entry.Name())
		if err != nil {
			continue
		}
		disc.Conflicts = append(disc.Conflicts, ConflictFile{
			Path:      filepath.Join(taskDir, entry.Name()),
			Timestamp: ts,
			Device:    device,
		})
	}

	sort.Slice(disc.Conflicts, func(i, j int) bool {
		a, b := disc.Conflicts[i], disc.Conflicts[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Device < b.Device
	})

	return disc, nil
}
