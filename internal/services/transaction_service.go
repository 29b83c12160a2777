package services

import (
	"context"
	"errors"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/identity"
	"bilancio/internal/log"
	"bilancio/internal/store"
)

// TransactionService exposes the four owner-scoped operations on transactions.
// Writes are normalized and validated here before they reach the store.
type TransactionService struct {
	records  store.RecordStore
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

func NewTransactionService(records store.RecordStore, notifier Notifier, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		records:  records,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentTransaction),
		now:      time.Now,
	}
}

// List returns the owner's transactions, most recent date first.
func (s *TransactionService) List(ctx context.Context, owner identity.Key) ([]core.Transaction, error) {
	if owner == "" {
		return nil, core.ErrMissingIdentity
	}
	txs, err := s.records.Select(ctx, store.Filter{OwnerKey: owner.String()}, store.NewestFirst)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list transactions",
			log.NewFields().WithOwner(owner.String()).WithOperation(log.OpList).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return nil, storeError("select", err)
	}
	return txs, nil
}

// Create stores a new transaction for owner. A missing type becomes expense.
func (s *TransactionService) Create(ctx context.Context, owner identity.Key, d core.Draft) (core.Transaction, error) {
	if owner == "" {
		return core.Transaction{}, core.ErrMissingIdentity
	}
	d = d.Normalize()
	fields := draftFields(owner, "", d).WithOperation(log.OpCreate)
	s.logger.InfoContext(ctx, "Creating transaction", fields.ToSlice()...)

	if err := d.Validate(); err != nil {
		s.logger.WarnContext(ctx, "Rejected transaction", fields.WithError(err, log.ErrorTypeValidation).ToSlice()...)
		return core.Transaction{}, err
	}

	created, err := s.records.Insert(ctx, d.Apply(core.Transaction{OwnerKey: owner.String()}))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create transaction", fields.WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return core.Transaction{}, storeError("insert", err)
	}

	s.logger.InfoContext(ctx, "Transaction created", fields.With(log.FieldTransactionID, created.ID).ToSlice()...)
	s.notify(ctx, core.ActionCreated, owner, created.ID)
	return created, nil
}

// Update replaces every writable field of the transaction identified by id
// and owned by owner. It returns core.ErrNotFound when nothing matched,
// whether the id is unknown or belongs to someone else.
func (s *TransactionService) Update(ctx context.Context, owner identity.Key, id string, d core.Draft) (core.Transaction, error) {
	if owner == "" {
		return core.Transaction{}, core.ErrMissingIdentity
	}
	if id == "" {
		return core.Transaction{}, core.ErrNotFound
	}
	d = d.Normalize()
	fields := draftFields(owner, id, d).WithOperation(log.OpUpdate)
	s.logger.InfoContext(ctx, "Updating transaction", fields.ToSlice()...)

	if err := d.Validate(); err != nil {
		s.logger.WarnContext(ctx, "Rejected transaction update", fields.WithError(err, log.ErrorTypeValidation).ToSlice()...)
		return core.Transaction{}, err
	}

	updated, err := s.records.Update(ctx, store.Filter{OwnerKey: owner.String(), ID: id}, d)
	if errors.Is(err, store.ErrNoRows) {
		s.logger.WarnContext(ctx, "Transaction to update not found", fields.WithError(err, log.ErrorTypeNotFound).ToSlice()...)
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update transaction", fields.WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return core.Transaction{}, storeError("update", err)
	}

	s.logger.InfoContext(ctx, "Transaction updated", fields.ToSlice()...)
	s.notify(ctx, core.ActionUpdated, owner, id)
	return updated, nil
}

// Delete removes the transaction identified by id and owned by owner.
// Deleting a missing or foreign transaction succeeds without effect.
func (s *TransactionService) Delete(ctx context.Context, owner identity.Key, id string) error {
	if owner == "" {
		return core.ErrMissingIdentity
	}
	fields := log.NewFields().WithOwner(owner.String()).WithOperation(log.OpDelete).With(log.FieldTransactionID, id)
	s.logger.InfoContext(ctx, "Deleting transaction", fields.ToSlice()...)
	if id == "" {
		return nil
	}

	if err := s.records.Delete(ctx, store.Filter{OwnerKey: owner.String(), ID: id}); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete transaction", fields.WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return storeError("delete", err)
	}

	s.logger.InfoContext(ctx, "Transaction deleted", fields.ToSlice()...)
	s.notify(ctx, core.ActionDeleted, owner, id)
	return nil
}

// notify never fails the request: the write already happened.
func (s *TransactionService) notify(ctx context.Context, action core.Action, owner identity.Key, id string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, core.ChangeEvent{
		Action:        action,
		TransactionID: id,
		OwnerKey:      owner.String(),
		At:            s.now().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change event",
			log.NewFields().WithOwner(owner.String()).With(log.FieldTransactionID, id).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
	}
}

func storeError(op string, err error) error {
	if errors.Is(err, store.ErrOwnerRequired) {
		return core.ErrMissingIdentity
	}
	return &core.StoreError{Op: op, Err: err}
}

func draftFields(owner identity.Key, id string, d core.Draft) log.Fields {
	amount := ""
	if d.Amount != nil {
		amount = d.Amount.String()
	}
	return log.NewFields().
		WithOwner(owner.String()).
		WithTransaction(id, d.Date.String(), amount, d.Category, string(d.Type))
}
