package oplog

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lherron/tcmerge/internal/domain"
)

const testUUID = "a1b2c3d4-e5f6-4a1b-8c2d-3e4f5a6b7c8d"

func TestDecodeCreate(t *testing.T) {
	op, ok, err := Decode(`{"Create":{"uuid":"` + testUUID + `"}}`)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected a task mutation")
	}
	if op.Kind != domain.OpCreate {
		t.Errorf("Expected create, got %s", op.Kind)
	}
	if op.TaskID.String() != testUUID {
		t.Errorf("Expected task %s, got %s", testUUID, op.TaskID)
	}
}

func TestDecodeUpdate(t *testing.T) {
	op, ok, err := Decode(`{"Update":{"uuid":"` + testUUID + `","property":"description","value":"buy milk","timestamp":"2024-03-01T10:00:00.5Z"}}`)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !ok || op.Kind != domain.OpUpdate {
		t.Fatalf("Expected update, got ok=%v kind=%s", ok, op.Kind)
	}
	if op.Property != "description" {
		t.Errorf("Expected property description, got %q", op.Property)
	}
	if op.Value == nil || *op.Value != "buy milk" {
		t.Errorf("Unexpected value: %v", op.Value)
	}
	want := time.Date(2024, 3, 1, 10, 0, 0, 500000000, time.UTC)
	if !op.Timestamp.Equal(want) {
		t.Errorf("Expected timestamp %s, got %s", want, op.Timestamp)
	}
}

func TestDecodeUpdateUnset(t *testing.T) {
	op, ok, err := Decode(`{"Update":{"uuid":"` + testUUID + `","property":"due","old_value":"1700000000","value":null,"timestamp":"2024-03-01T10:00:00Z"}}`)
	if err != nil || !ok {
		t.Fatalf("Decode failed: ok=%v err=%v", ok, err)
	}
	if op.Value != nil {
		t.Errorf("Expected unset value, got %q", *op.Value)
	}
	if op.OldValue == nil || *op.OldValue != "1700000000" {
		t.Errorf("Unexpected old value: %v", op.OldValue)
	}
}

func TestDecodeDelete(t *testing.T) {
	op, ok, err := Decode(`{"Delete":{"uuid":"` + testUUID + `","old_task":{"status":"deleted","modified":"1700000000"}}}`)
	if err != nil || !ok {
		t.Fatalf("Decode failed: ok=%v err=%v", ok, err)
	}
	if op.Kind != domain.OpDelete {
		t.Errorf("Expected delete, got %s", op.Kind)
	}
	if op.OldTask["modified"] != "1700000000" {
		t.Errorf("Unexpected old_task: %v", op.OldTask)
	}
}

func TestDecodeUndoPoint(t *testing.T) {
	for _, raw := range []string{`"UndoPoint"`, `{"UndoPoint":null}`} {
		_, ok, err := Decode(raw)
		if err != nil {
			t.Fatalf("Decode(%s) failed: %v", raw, err)
		}
		if ok {
			t.Errorf("Decode(%s): undo marker should not be a mutation", raw)
		}
	}
}

func TestDecodeGarbage(t *testing.T) {
	for _, raw := range []string{`not json`, `{}`, `{"Create":{"uuid":"nope"}}`, `"Unknown"`} {
		if _, _, err := Decode(raw); err == nil {
			t.Errorf("Decode(%s): expected error", raw)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	id := uuid.MustParse(testUUID)
	value := "buy milk and eggs"

	ops := []domain.Op{
		{TaskID: id, Kind: domain.OpCreate},
		{TaskID: id, Kind: domain.OpUpdate, Property: "description", Value: &value,
			Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{TaskID: id, Kind: domain.OpUpdate, Property: "due",
			Timestamp: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)},
		{TaskID: id, Kind: domain.OpDelete, OldTask: map[string]string{"status": "deleted"}},
	}

	for _, original := range ops {
		data, err := Encode(original)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		decoded, ok, err := Decode(data)
		if err != nil || !ok {
			t.Fatalf("Decode(%s) failed: ok=%v err=%v", data, ok, err)
		}
		if decoded.TaskID != original.TaskID || decoded.Kind != original.Kind || decoded.Property != original.Property {
			t.Errorf("Round trip changed identity: %+v vs %+v", decoded, original)
		}
		if (decoded.Value == nil) != (original.Value == nil) {
			t.Errorf("Round trip changed value presence for %s", data)
		}
		if original.Kind == domain.OpUpdate && !decoded.Timestamp.Equal(original.Timestamp) {
			t.Errorf("Round trip changed timestamp: %s vs %s", decoded.Timestamp, original.Timestamp)
		}
	}
}

func TestEncodeUnknownKind(t *testing.T) {
	_, err := Encode(domain.Op{Kind: domain.OpKind("bogus")})
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Errorf("Expected encode error naming the kind, got %v", err)
	}
}
