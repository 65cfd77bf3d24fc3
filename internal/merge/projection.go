package merge

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lherron/tcmerge/internal/domain"
)

// Projection is the task table materialized by replaying a merged log.
type Projection struct {
	Tasks     map[uuid.UUID]domain.Task
	Anomalies []domain.Anomaly
}

// Project replays a log in its given order and returns the final task
// state. Because the log is globally ordered, applying updates in sequence
// is exactly per-field last-writer-wins.
//
// Deletes are terminal: entries ordered before a delete never affect state
// after it, and a task only comes back through a later create. An update
// after a delete with no intervening create is recorded as an anomaly and
// does not materialize the task.
//
// Replay is fully deterministic: the same log always yields identical state.
func Project(log []domain.Op) *Projection {
	proj := &Projection{Tasks: make(map[uuid.UUID]domain.Task)}

	// Tasks deleted (or never created) are tracked so that trailing
	// updates can be flagged instead of silently applied.
	deletedAt := make(map[uuid.UUID]time.Time)

	for _, op := range log {
		switch op.Kind {
		case domain.OpCreate:
			if _, live := proj.Tasks[op.TaskID]; !live {
				proj.Tasks[op.TaskID] = domain.Task{
					UUID:   op.TaskID,
					Fields: make(map[string]domain.Field),
				}
				delete(deletedAt, op.TaskID)
			}

		case domain.OpUpdate:
			task, live := proj.Tasks[op.TaskID]
			if !live {
				proj.Anomalies = append(proj.Anomalies, domain.Anomaly{
					TaskID:    op.TaskID,
					Property:  op.Property,
					DeletedAt: deletedAt[op.TaskID],
					UpdatedAt: op.Timestamp,
					Replica:   op.Replica,
				})
				continue
			}
			if op.Value == nil {
				delete(task.Fields, op.Property)
				continue
			}
			task.Fields[op.Property] = domain.Field{
				Value:     *op.Value,
				Timestamp: op.Timestamp,
				Replica:   op.Replica,
			}

		case domain.OpDelete:
			if _, live := proj.Tasks[op.TaskID]; live {
				delete(proj.Tasks, op.TaskID)
				deletedAt[op.TaskID] = op.Timestamp
			}
		}
	}

	sort.Slice(proj.Anomalies, func(i, j int) bool {
		a, b := proj.Anomalies[i], proj.Anomalies[j]
		if a.TaskID != b.TaskID {
			return a.TaskID.String() < b.TaskID.String()
		}
		return a.UpdatedAt.Before(b.UpdatedAt)
	})

	return proj
}

// TaskIDs returns the projected task identifiers in sorted order.
func (p *Projection) TaskIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Tasks))
	for id := range p.Tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Pending returns the sorted identifiers of tasks in the working set.
func (p *Projection) Pending() []uuid.UUID {
	var ids []uuid.UUID
	for id, task := range p.Tasks {
		if task.Pending() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
