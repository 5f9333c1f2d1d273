package notify

import (
	"encoding/json"
	"time"
)

// RecordChangedMessage announces a committed mutation on one owner's
// records. Consumers re-read the owner's current state from their own
// store; the message carries no record data.
type RecordChangedMessage struct {
	OwnerID   string    `json:"owner_id"`
	Op        string    `json:"op"` // create, update, delete
	RecordID  string    `json:"record_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangedMessage(ownerID, op, recordID string) *RecordChangedMessage {
	return &RecordChangedMessage{
		OwnerID:   ownerID,
		Op:        op,
		RecordID:  recordID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON creates a message from JSON bytes.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
