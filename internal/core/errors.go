package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentity is returned when no owner key can be resolved.
	ErrMissingIdentity = errors.New("missing identity")
	// ErrNotFound is returned when no transaction matches id and owner key.
	ErrNotFound = errors.New("transaction not found")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrStore is matched by every *StoreError.
	ErrStore = errors.New("store error")

	ErrInvalidAmount = &ValidationError{Field: "amount", Reason: "invalid amount"}
)

// ValidationError reports a missing or malformed field in a write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError wraps a failure reported by the record store. Its message is the
// store's own message so clients see what the store said.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return "store " + e.Op + " failed"
	}
	return e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}
