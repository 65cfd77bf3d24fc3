package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Schema of a taskchampion store, as created by the taskchampion sqlite
// storage backend. The writer reproduces it verbatim so the merged file is
// indistinguishable from a client-created one.
const Schema = `
CREATE TABLE IF NOT EXISTS operations (id INTEGER PRIMARY KEY AUTOINCREMENT, data STRING);
CREATE TABLE IF NOT EXISTS sync_meta (key STRING PRIMARY KEY, value STRING);
CREATE TABLE IF NOT EXISTS tasks (uuid STRING PRIMARY KEY, data STRING);
CREATE TABLE IF NOT EXISTS working_set (id INTEGER PRIMARY KEY, uuid STRING);
`

// RequiredTables are the tables a file must carry to be treated as a
// taskchampion store.
var RequiredTables = []string{"operations", "sync_meta", "tasks", "working_set"}

// OpenReadOnly opens a SQLite database without ever mutating it. The usual
// consumer of these files (taskwarrior) rewrites them merely by opening them;
// mode=ro guarantees we do not.
func OpenReadOnly(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Create opens a writable SQLite database at the given path and installs
// the taskchampion schema.
func Create(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// TableNames returns the set of user tables in the database.
func TableNames(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names[name] = true
	}
	return names, rows.Err()
}
