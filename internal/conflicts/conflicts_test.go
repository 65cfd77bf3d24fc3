package conflicts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lherron/tcmerge/internal/domain"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMatchName(t *testing.T) {
	cases := map[string]bool{
		"taskchampion.sync-conflict-20240301-101530-ABCDEF1.sqlite3": true,
		"taskchampion.sqlite3":                                       false,
		"taskchampion.sync-conflict-20240301-101530-abcdef1.sqlite3": false, // lowercase device
		"taskchampion.sync-conflict-2024031-101530-ABCDEF1.sqlite3":  false, // short date
		"other.sync-conflict-20240301-101530-ABCDEF1.sqlite3":        false,
		"taskchampion.sync-conflict-20240301-101530-ABCDEF1.sqlite3.bak": false,
	}
	for name, want := range cases {
		if got := MatchName(name); got != want {
			t.Errorf("MatchName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParseName(t *testing.T) {
	ts, device, err := ParseName("taskchampion.sync-conflict-20240301-101530-ABCDEF1.sqlite3")
	if err != nil {
		t.Fatalf("ParseName failed: %v", err)
	}
	want := time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("Expected %s, got %s", want, ts)
	}
	if device != "ABCDEF1" {
		t.Errorf("Expected device ABCDEF1, got %s", device)
	}

	if _, _, err := ParseName("taskchampion.sqlite3"); err == nil {
		t.Error("Expected error for non-conflict name")
	}
}

func TestDiscoverOrdersConflicts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, PrimaryName)
	late := touch(t, dir, "taskchampion.sync-conflict-20240302-000000-AAAAAAA.sqlite3")
	early := touch(t, dir, "taskchampion.sync-conflict-20240301-000000-ZZZZZZZ.sqlite3")
	tieB := touch(t, dir, "taskchampion.sync-conflict-20240301-120000-BBBBBBB.sqlite3")
	tieA := touch(t, dir, "taskchampion.sync-conflict-20240301-120000-AAAAAAA.sqlite3")
	touch(t, dir, "unrelated.txt")

	disc, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if disc.Primary != filepath.Join(dir, PrimaryName) {
		t.Errorf("Unexpected primary: %s", disc.Primary)
	}

	var got []string
	for _, cf := range disc.Conflicts {
		got = append(got, cf.Path)
	}
	want := []string{early, tieA, tieB, late}
	if len(got) != len(want) {
		t.Fatalf("Expected %d conflicts, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestDiscoverMissingPrimary(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "taskchampion.sync-conflict-20240301-000000-AAAAAAA.sqlite3")

	_, err := Discover(dir)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestDiscoverNoConflicts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, PrimaryName)

	disc, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(disc.Conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %v", disc.Conflicts)
	}
}
