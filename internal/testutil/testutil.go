package testutil

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/lherron/tcmerge/internal/db"
)

// SeedStore creates a taskchampion-format database at path with the given
// task rows (uuid -> properties) and raw operation rows.
func SeedStore(t *testing.T, path string, tasks map[string]map[string]string, ops []string) {
	t.Helper()

	conn, err := db.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	defer conn.Close()

	for id, props := range tasks {
		data, err := json.Marshal(props)
		if err != nil {
			t.Fatalf("Failed to encode task data: %v", err)
		}
		if _, err := conn.Exec(`INSERT INTO tasks (uuid, data) VALUES (?, ?)`, id, string(data)); err != nil {
			t.Fatalf("Failed to insert task %s: %v", id, err)
		}
	}

	for _, op := range ops {
		if _, err := conn.Exec(`INSERT INTO operations (data) VALUES (?)`, op); err != nil {
			t.Fatalf("Failed to insert operation %q: %v", op, err)
		}
	}
}

// SeedSyncMeta adds sync_meta rows to an existing store.
func SeedSyncMeta(t *testing.T, path string, meta map[string]string) {
	t.Helper()

	conn, err := db.Create(path)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	defer conn.Close()

	for key, value := range meta {
		if _, err := conn.Exec(`INSERT OR REPLACE INTO sync_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			t.Fatalf("Failed to insert sync_meta %q: %v", key, err)
		}
	}
}

// MustUUID parses a UUID literal used in fixtures.
func MustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("Invalid test uuid %q: %v", s, err)
	}
	return id
}
