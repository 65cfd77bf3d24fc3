package oplog

import (
	"sort"
	"strconv"
	"strings"

	"github.com/lherron/tcmerge/internal/domain"
)

// Log is one replica's operation log in load order.
type Log struct {
	Replica int
	Ops     []domain.Op
}

// Less imposes the global order over entries from any number of replicas:
// timestamp first, then replica as a deterministic tie-break, then the
// per-replica sequence. Within a single replica this degenerates to
// (timestamp, seq), which preserves the order the log was written in.
func Less(a, b domain.Op) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if a.Replica != b.Replica {
		return a.Replica < b.Replica
	}
	return a.Seq < b.Seq
}

// Sort orders entries in place by the global order.
func Sort(ops []domain.Op) {
	sort.SliceStable(ops, func(i, j int) bool { return Less(ops[i], ops[j]) })
}

// Key returns the identity of an operation for deduplication. Two entries
// are the same operation iff they share task, kind, property, value (including
// set-vs-unset) and timestamp. The synthetic replica id is deliberately not
// part of the identity: it only says which file an entry was loaded from, so
// the same logical operation propagated into two copies still collapses to one.
func Key(op domain.Op) string {
	value := "\x00"
	if op.Value != nil {
		value = "v" + *op.Value
	}
	return strings.Join([]string{
		op.TaskID.String(),
		string(op.Kind),
		op.Property,
		value,
		strconv.FormatInt(op.Timestamp.UTC().UnixNano(), 10),
	}, "\x1f")
}
