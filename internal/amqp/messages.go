package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"bilancio/internal/core"
)

// ChangeMessage announces that an owner's transactions changed. It carries
// no transaction data; receivers only use it to drop cached views.
type ChangeMessage struct {
	Action        core.Action `json:"action"`
	TransactionID string      `json:"transaction_id"`
	OwnerKey      string      `json:"owner_key"`
	Timestamp     time.Time   `json:"timestamp"`
}

// NewChangeMessage wraps a change event for publishing
func NewChangeMessage(e core.ChangeEvent) *ChangeMessage {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ChangeMessage{
		Action:        e.Action,
		TransactionID: e.TransactionID,
		OwnerKey:      e.OwnerKey,
		Timestamp:     ts,
	}
}

// Event converts the message back to a change event
func (m *ChangeMessage) Event() core.ChangeEvent {
	return core.ChangeEvent{
		Action:        m.Action,
		TransactionID: m.TransactionID,
		OwnerKey:      m.OwnerKey,
		At:            m.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects ones without an owner
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerKey == "" {
		return nil, errors.New("change message without owner key")
	}
	return &msg, nil
}
