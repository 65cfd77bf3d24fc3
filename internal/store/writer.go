package store

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/lherron/tcmerge/internal/db"
	"github.com/lherron/tcmerge/internal/domain"
	"github.com/lherron/tcmerge/internal/oplog"
)

// Write serializes the merged log and its projected task table into a fresh
// database and atomically renames it over path. The target is never written
// in place: on any failure the temporary file is removed and the original is
// left untouched, and the error matches domain.ErrWriteFailure.
//
// syncMeta is carried over from the primary so the merged store keeps its
// sync client identity.
func Write(path string, ops []domain.Op, tasks map[uuid.UUID]domain.Task, syncMeta map[string]string) error {
	tmp := path + ".merge-tmp"
	// A leftover from a crashed run; the rename below would have replaced
	// it anyway.
	os.Remove(tmp)

	if err := writeStore(tmp, ops, tasks, syncMeta); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", domain.ErrWriteFailure, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to replace %s: %v", domain.ErrWriteFailure, path, err)
	}
	return nil
}

func writeStore(path string, ops []domain.Op, tasks map[uuid.UUID]domain.Task, syncMeta map[string]string) error {
	conn, err := db.Create(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		data, err := oplog.Encode(op)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO operations (data) VALUES (?)`, data); err != nil {
			return fmt.Errorf("failed to insert operation: %w", err)
		}
	}

	ids := make([]uuid.UUID, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var pending []uuid.UUID
	for _, id := range ids {
		task := tasks[id]

		props := make(map[string]string, len(task.Fields))
		for name, field := range task.Fields {
			props[name] = field.Value
		}
		data, err := encodeTaskData(props)
		if err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
		if _, err := tx.Exec(`INSERT INTO tasks (uuid, data) VALUES (?, ?)`, id.String(), data); err != nil {
			return fmt.Errorf("failed to insert task %s: %w", id, err)
		}

		if task.Pending() {
			pending = append(pending, id)
		}
	}

	for i, id := range pending {
		if _, err := tx.Exec(`INSERT INTO working_set (id, uuid) VALUES (?, ?)`, i+1, id.String()); err != nil {
			return fmt.Errorf("failed to insert working set entry %s: %w", id, err)
		}
	}

	keys := make([]string, 0, len(syncMeta))
	for key := range syncMeta {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, err := tx.Exec(`INSERT INTO sync_meta (key, value) VALUES (?, ?)`, key, syncMeta[key]); err != nil {
			return fmt.Errorf("failed to insert sync_meta %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
