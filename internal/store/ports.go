// Package store defines the record store port used by the transaction service.
package store

import (
	"context"
	"errors"

	"bilancio/internal/core"
)

var (
	// ErrNoRows is returned by Update when no row matched the filter.
	ErrNoRows = errors.New("no rows matched")
	// ErrOwnerRequired is returned when a filter has no owner key.
	ErrOwnerRequired = errors.New("owner key is required")
	// ErrIDRequired is returned when an update or delete filter has no id.
	ErrIDRequired = errors.New("id is required")
)

// OrderByDate is the only sort field stores support.
const OrderByDate = "date"

type (
	// Filter is an equality filter. OwnerKey is always required; ID narrows
	// the match to a single row.
	Filter struct {
		OwnerKey string
		ID       string
	}

	Order struct {
		Field      string
		Descending bool
	}

	// RecordStore persists transactions. Every operation is scoped by owner key.
	RecordStore interface {
		// Select returns the owner's rows in the requested order.
		Select(ctx context.Context, f Filter, o Order) ([]core.Transaction, error)
		// Insert stores t and returns it with id and creation time assigned.
		Insert(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// Update replaces the writable fields of the row matching id and owner.
		Update(ctx context.Context, f Filter, d core.Draft) (core.Transaction, error)
		// Delete removes the row matching id and owner. Deleting nothing is not an error.
		Delete(ctx context.Context, f Filter) error
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// NewestFirst is the order used for listings.
var NewestFirst = Order{Field: OrderByDate, Descending: true}

// Validate checks the owner requirement and, when needID is set, the id.
func (f Filter) Validate(needID bool) error {
	if f.OwnerKey == "" {
		return ErrOwnerRequired
	}
	if needID && f.ID == "" {
		return ErrIDRequired
	}
	return nil
}
