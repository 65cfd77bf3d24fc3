package db

import (
	"path/filepath"
	"testing"
)

func TestCreateInstallsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskchampion.sqlite3")

	conn, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer conn.Close()

	tables, err := TableNames(conn)
	if err != nil {
		t.Fatalf("TableNames failed: %v", err)
	}
	for _, name := range RequiredTables {
		if !tables[name] {
			t.Errorf("Missing table %q", name)
		}
	}
}

func TestOpenReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskchampion.sqlite3")

	conn, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	conn.Close()

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	defer ro.Close()

	if _, err := ro.Exec(`INSERT INTO sync_meta (key, value) VALUES ('k', 'v')`); err == nil {
		t.Fatal("Write through a read-only connection should fail")
	}
}
