package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecord_JSONIsFlat(t *testing.T) {
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	rec := Record{ID: "rec-1", CreatedAt: at, UserID: "user-1", Fields: map[string]any{"bp": "120/80", "pulse": 72.0}}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal flat: %v", err)
	}
	if flat["id"] != "rec-1" || flat["userId"] != "user-1" || flat["bp"] != "120/80" || flat["createdAt"] != "2026-10-18T09:00:00Z" {
		t.Fatalf("unexpected layout: %s", data)
	}
	if _, nested := flat["fields"]; nested {
		t.Fatalf("payload must not be nested: %s", data)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != rec.ID || back.UserID != rec.UserID || !back.CreatedAt.Equal(at) {
		t.Fatalf("metadata lost: %+v", back)
	}
	if len(back.Fields) != 2 || back.Fields["pulse"] != 72.0 {
		t.Fatalf("fields lost: %+v", back.Fields)
	}
}

func TestRecord_FieldsCannotOverrideMetadata(t *testing.T) {
	rec := Record{ID: "rec-1", UserID: "user-1", Fields: map[string]any{"id": "forged", "userId": "someone", "note": "x"}}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != "rec-1" || back.UserID != "user-1" {
		t.Fatalf("metadata overridden: %+v", back)
	}
	if _, ok := back.Fields["id"]; ok || back.Fields["note"] != "x" {
		t.Fatalf("fields: %+v", back.Fields)
	}
}

func TestRecordFields(t *testing.T) {
	if got := RecordFields(map[string]any{"createdAt": "yesterday"}); got != nil {
		t.Fatalf("only reserved keys must give nil, got %v", got)
	}
	in := map[string]any{"a": 1, "id": "x"}
	got := RecordFields(in)
	if len(got) != 1 || got["a"] != 1 {
		t.Fatalf("got %v", got)
	}
	if _, ok := in["id"]; !ok {
		t.Fatalf("input must not be modified")
	}
}
