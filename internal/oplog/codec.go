package oplog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lherron/tcmerge/internal/domain"
)

// Wire format: each row of the operations table is a JSON-encoded variant,
// one of
//
//	{"Create":{"uuid":"..."}}
//	{"Update":{"uuid":"...","property":"p","value":"v","old_value":"o","timestamp":"RFC3339"}}
//	{"Delete":{"uuid":"...","old_task":{"prop":"val",...}}}
//	"UndoPoint" (or {"UndoPoint":null} from older clients)
//
// Create and Delete carry no timestamp of their own; see store.Read for how
// timestamps are synthesized for them.

type wireCreate struct {
	UUID string `json:"uuid"`
}

type wireUpdate struct {
	UUID      string  `json:"uuid"`
	Property  string  `json:"property"`
	OldValue  *string `json:"old_value,omitempty"`
	Value     *string `json:"value,omitempty"`
	Timestamp string  `json:"timestamp"`
}

type wireDelete struct {
	UUID    string            `json:"uuid"`
	OldTask map[string]string `json:"old_task"`
}

type wireOp struct {
	Create    *wireCreate     `json:"Create,omitempty"`
	Update    *wireUpdate     `json:"Update,omitempty"`
	Delete    *wireDelete     `json:"Delete,omitempty"`
	UndoPoint json.RawMessage `json:"UndoPoint,omitempty"`
}

// Decode parses one operations-table row. Undo markers decode to ok=false:
// they are not task mutations and do not enter the log.
func Decode(data string) (op domain.Op, ok bool, err error) {
	// Unit variants serialize as a bare JSON string.
	var unit string
	if json.Unmarshal([]byte(data), &unit) == nil {
		if unit == "UndoPoint" {
			return domain.Op{}, false, nil
		}
		return domain.Op{}, false, fmt.Errorf("unknown operation variant %q", unit)
	}

	var w wireOp
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return domain.Op{}, false, fmt.Errorf("failed to decode operation: %w", err)
	}

	switch {
	case w.Create != nil:
		id, err := uuid.Parse(w.Create.UUID)
		if err != nil {
			return domain.Op{}, false, fmt.Errorf("create has invalid uuid %q: %w", w.Create.UUID, err)
		}
		return domain.Op{TaskID: id, Kind: domain.OpCreate}, true, nil

	case w.Update != nil:
		id, err := uuid.Parse(w.Update.UUID)
		if err != nil {
			return domain.Op{}, false, fmt.Errorf("update has invalid uuid %q: %w", w.Update.UUID, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, w.Update.Timestamp)
		if err != nil {
			return domain.Op{}, false, fmt.Errorf("update has invalid timestamp %q: %w", w.Update.Timestamp, err)
		}
		return domain.Op{
			TaskID:    id,
			Kind:      domain.OpUpdate,
			Property:  w.Update.Property,
			Value:     w.Update.Value,
			OldValue:  w.Update.OldValue,
			Timestamp: ts.UTC(),
		}, true, nil

	case w.Delete != nil:
		id, err := uuid.Parse(w.Delete.UUID)
		if err != nil {
			return domain.Op{}, false, fmt.Errorf("delete has invalid uuid %q: %w", w.Delete.UUID, err)
		}
		return domain.Op{TaskID: id, Kind: domain.OpDelete, OldTask: w.Delete.OldTask}, true, nil

	case len(w.UndoPoint) > 0:
		return domain.Op{}, false, nil

	default:
		return domain.Op{}, false, fmt.Errorf("operation has no recognized variant")
	}
}

// Encode serializes an entry back into the operations-table row format.
// Decode(Encode(op)) preserves task, kind, property, value and timestamp.
func Encode(op domain.Op) (string, error) {
	var w wireOp

	switch op.Kind {
	case domain.OpCreate:
		w.Create = &wireCreate{UUID: op.TaskID.String()}
	case domain.OpUpdate:
		w.Update = &wireUpdate{
			UUID:      op.TaskID.String(),
			Property:  op.Property,
			OldValue:  op.OldValue,
			Value:     op.Value,
			Timestamp: op.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	case domain.OpDelete:
		old := op.OldTask
		if old == nil {
			old = map[string]string{}
		}
		w.Delete = &wireDelete{UUID: op.TaskID.String(), OldTask: old}
	default:
		return "", fmt.Errorf("cannot encode operation kind %q", op.Kind)
	}

	data, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("failed to encode operation: %w", err)
	}
	return string(data), nil
}
