package notify

import "testing"

func TestRecordChangedMessageRoundTrip(t *testing.T) {
	msg := NewRecordChangedMessage("owner-1", "create", "rec-1")
	if msg.Timestamp.IsZero() {
		t.Fatal("expected timestamp")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := RecordChangedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.OwnerID != "owner-1" || got.Op != "create" || got.RecordID != "rec-1" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestRecordChangedMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := RecordChangedMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
}
