package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OpKind represents the kind of an operation log entry
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Op is a single entry in a replica's operation log.
//
// Replica and Seq are assigned at load time: Replica identifies which input
// file the entry came from (the stored format has no replica field), and Seq
// is the entry's position within that file's log. Together with Timestamp
// they give every entry a total order.
type Op struct {
	TaskID    uuid.UUID         `json:"task_id"`
	Kind      OpKind            `json:"kind"`
	Property  string            `json:"property,omitempty"`
	Value     *string           `json:"value,omitempty"`     // nil on update means the property was unset
	OldValue  *string           `json:"old_value,omitempty"` // previous value recorded by the producing client
	OldTask   map[string]string `json:"old_task,omitempty"`  // task state captured by a delete
	Timestamp time.Time         `json:"timestamp"`
	Replica   int               `json:"replica"`
	Seq       int               `json:"seq"`
	Synthetic bool              `json:"synthetic,omitempty"` // derived from the task table, not the stored log
}

// Field is a projected property value tagged with the provenance of its
// most recent setter.
type Field struct {
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Replica   int       `json:"replica"`
}

// Task is the projected current state of one task.
type Task struct {
	UUID   uuid.UUID        `json:"uuid"`
	Fields map[string]Field `json:"fields"`
}

// Get returns a property value, or "" if unset.
func (t *Task) Get(property string) string {
	f, ok := t.Fields[property]
	if !ok {
		return ""
	}
	return f.Value
}

// Pending reports whether the task belongs in the working set.
func (t *Task) Pending() bool {
	return t.Get("status") == "pending"
}

// Anomaly records an update that followed a delete with no intervening
// create. The task is not materialized from such updates; the anomaly is
// surfaced for manual inspection instead.
type Anomaly struct {
	TaskID    uuid.UUID `json:"task_id"`
	Property  string    `json:"property,omitempty"`
	DeletedAt time.Time `json:"deleted_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Replica   int       `json:"replica"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("task %s: update of %q at %s follows delete at %s with no create (replica %d)",
		a.TaskID, a.Property, a.UpdatedAt.UTC().Format(time.RFC3339), a.DeletedAt.UTC().Format(time.RFC3339), a.Replica)
}
