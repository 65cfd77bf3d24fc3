package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/lherron/tcmerge/internal/db"
	"github.com/lherron/tcmerge/internal/domain"
	"github.com/lherron/tcmerge/internal/oplog"
)

// Replica is the in-memory contents of one input database: the materialized
// task table, the operation log (stored entries plus synthesized baseline,
// see below), and the sync metadata.
type Replica struct {
	Path     string
	ID       int
	Tasks    map[uuid.UUID]map[string]string
	Log      []domain.Op
	SyncMeta map[string]string
}

// Read loads a task store from disk without mutating it. The replica id
// tags every loaded entry; it identifies the input file, not anything stored
// in the format.
//
// Returns domain.ErrNotFound if the path does not exist,
// domain.ErrCorruptStore if the file is not readable as a task store, and
// domain.ErrIncompatibleSchema if it is a valid database without the
// expected tables.
func Read(path string, replica int) (*Replica, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	// The primary may be held by a running taskwarrior; retry briefly on
	// SQLITE_BUSY before giving up.
	var rep *Replica
	operation := func() error {
		r, err := readOnce(path, replica)
		if err != nil {
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		rep = r
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 3 * time.Second
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return rep, nil
}

func readOnce(path string, replica int) (*Replica, error) {
	conn, err := db.OpenReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer conn.Close()

	tables, err := db.TableNames(conn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, domain.ErrCorruptStore, err)
	}
	for _, name := range db.RequiredTables {
		if !tables[name] {
			return nil, fmt.Errorf("%s: %w: missing table %q", path, domain.ErrIncompatibleSchema, name)
		}
	}

	rep := &Replica{
		Path:     path,
		ID:       replica,
		Tasks:    make(map[uuid.UUID]map[string]string),
		SyncMeta: make(map[string]string),
	}

	if err := readSyncMeta(conn, rep); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := readTasks(conn, rep); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	stored, err := readOperations(conn, rep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// The operations table only holds entries since the last sync, while
	// the task table holds full state. Synthesize a baseline log from the
	// table so that replaying the log alone always reproduces at least the
	// stored state, then append the real entries. Baseline entries come
	// first so that stored history wins sequence tie-breaks.
	log := baseline(rep.Tasks)
	log = append(log, stored...)
	for i := range log {
		log[i].Replica = replica
		log[i].Seq = i
	}
	rep.Log = log

	return rep, nil
}

func readSyncMeta(conn *sql.DB, rep *Replica) error {
	rows, err := conn.Query(`SELECT key, value FROM sync_meta`)
	if err != nil {
		return fmt.Errorf("%w: failed to read sync_meta: %v", domain.ErrCorruptStore, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("%w: failed to scan sync_meta: %v", domain.ErrCorruptStore, err)
		}
		rep.SyncMeta[key] = value
	}
	return rows.Err()
}

func readTasks(conn *sql.DB, rep *Replica) error {
	rows, err := conn.Query(`SELECT uuid, data FROM tasks`)
	if err != nil {
		return fmt.Errorf("%w: failed to read tasks: %v", domain.ErrCorruptStore, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rawUUID, data string
		if err := rows.Scan(&rawUUID, &data); err != nil {
			return fmt.Errorf("%w: failed to scan task row: %v", domain.ErrCorruptStore, err)
		}

		id, err := uuid.Parse(rawUUID)
		if err != nil {
			return fmt.Errorf("%w: task row has invalid uuid %q", domain.ErrCorruptStore, rawUUID)
		}

		props, err := decodeTaskData(data)
		if err != nil {
			return fmt.Errorf("%w: task %s: %v", domain.ErrCorruptStore, id, err)
		}
		rep.Tasks[id] = props
	}
	return rows.Err()
}

func readOperations(conn *sql.DB, rep *Replica) ([]domain.Op, error) {
	rows, err := conn.Query(`SELECT id, data FROM operations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read operations: %v", domain.ErrCorruptStore, err)
	}
	defer rows.Close()

	var ops []domain.Op
	lastUpdate := make(map[uuid.UUID]time.Time)

	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("%w: failed to scan operation row: %v", domain.ErrCorruptStore, err)
		}

		op, ok, err := oplog.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%w: operation %d: %v", domain.ErrCorruptStore, id, err)
		}
		if !ok {
			continue // undo marker
		}

		switch op.Kind {
		case domain.OpUpdate:
			if op.Timestamp.After(lastUpdate[op.TaskID]) {
				lastUpdate[op.TaskID] = op.Timestamp
			}
		case domain.OpDelete:
			op.Timestamp = deleteTime(op.OldTask, lastUpdate[op.TaskID])
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// baseline synthesizes a create plus per-property updates for every task
// row, timestamped at the task's modified time. Iteration is over sorted
// uuids and sorted properties so the synthesized log is deterministic.
func baseline(tasks map[uuid.UUID]map[string]string) []domain.Op {
	ids := make([]uuid.UUID, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var ops []domain.Op
	for _, id := range ids {
		props := tasks[id]

		ts, ok := parseTaskTime(props["modified"])
		if !ok {
			ts, _ = parseTaskTime(props["entry"])
		}

		ops = append(ops, domain.Op{TaskID: id, Kind: domain.OpCreate, Synthetic: true})

		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			value := props[name]
			ops = append(ops, domain.Op{
				TaskID:    id,
				Kind:      domain.OpUpdate,
				Property:  name,
				Value:     &value,
				Timestamp: ts,
				Synthetic: true,
			})
		}
	}
	return ops
}

// deleteTime recovers a timestamp for a delete entry, which carries none of
// its own: the deleted task's modified (or end) time, falling back to the
// latest update seen for the task earlier in the same log.
func deleteTime(oldTask map[string]string, lastUpdate time.Time) time.Time {
	if ts, ok := parseTaskTime(oldTask["modified"]); ok {
		return ts
	}
	if ts, ok := parseTaskTime(oldTask["end"]); ok {
		return ts
	}
	return lastUpdate
}

// parseTaskTime parses a task property timestamp, which taskchampion stores
// as epoch seconds; RFC 3339 is accepted for robustness.
func parseTaskTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), true
	}
	return time.Time{}, false
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
