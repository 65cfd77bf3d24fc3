// Package merge reconciles divergent operation logs of the same logical
// task store into a single log, and materializes task state from it.
//
// The merged log is the deduplicated union of all input entries in global
// (timestamp, replica, sequence) order. No history is discarded: when two
// distinct updates collide on a field, both stay in the log and only the
// projection picks the later writer.
package merge

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/lherron/tcmerge/internal/domain"
	"github.com/lherron/tcmerge/internal/oplog"
)

// Result carries the merged log plus union accounting.
type Result struct {
	Ops        []domain.Op
	InputOps   int // total entries across all inputs
	Duplicates int // entries collapsed as exact duplicates
}

// Merge unions any number of per-replica logs into one globally ordered,
// deduplicated log. The first log is conventionally the primary (replica 0),
// which wins timestamp ties deterministically.
//
// Returns domain.ErrEmptyInput when no logs are supplied and
// domain.ErrIncompatibleSchema when an entry could not have come from a
// well-formed store of the same schema.
func Merge(logs ...oplog.Log) (*Result, error) {
	if len(logs) == 0 {
		return nil, domain.ErrEmptyInput
	}

	total := 0
	for _, log := range logs {
		if err := validate(log); err != nil {
			return nil, err
		}
		total += len(log.Ops)
	}

	union := make([]domain.Op, 0, total)
	for _, log := range logs {
		union = append(union, log.Ops...)
	}
	oplog.Sort(union)

	// Exact duplicates are adjacent only within one timestamp run, not
	// globally, so dedupe by identity key over the whole union. The first
	// occurrence in global order survives.
	seen := make(map[string]bool, len(union))
	merged := union[:0]
	for _, op := range union {
		key := oplog.Key(op)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, op)
	}

	return &Result{
		Ops:        merged,
		InputOps:   total,
		Duplicates: total - len(merged),
	}, nil
}

func validate(log oplog.Log) error {
	for _, op := range log.Ops {
		if op.TaskID == uuid.Nil {
			return fmt.Errorf("%w: replica %d has an entry with a nil task id", domain.ErrIncompatibleSchema, log.Replica)
		}
		if op.Kind == domain.OpUpdate && (op.Property == "" || !utf8.ValidString(op.Property)) {
			return fmt.Errorf("%w: replica %d has an update with invalid property %q for task %s",
				domain.ErrIncompatibleSchema, log.Replica, op.Property, op.TaskID)
		}
	}
	return nil
}
