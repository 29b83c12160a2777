package core

import "time"

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Action names a successful mutation.
type Action string

// ChangeEvent announces that an owner's transactions changed.
type ChangeEvent struct {
	Action        Action    `json:"action"`
	TransactionID string    `json:"transaction_id"`
	OwnerKey      string    `json:"owner_key"`
	At            time.Time `json:"at"`
}
