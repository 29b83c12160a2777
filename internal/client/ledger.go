package client

import (
	"context"
	"slices"
	"sync"

	"bilancio/internal/core"
)

// API is the subset of Client the Ledger needs.
type API interface {
	List(ctx context.Context) ([]core.Transaction, error)
	Create(ctx context.Context, d core.Draft) (core.Transaction, error)
	Update(ctx context.Context, id string, d core.Draft) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// Ledger keeps the client's copy of the transaction list. The copy changes
// only after the server confirmed the operation; a failed call leaves it
// exactly as it was.
type Ledger struct {
	api API

	mu    sync.RWMutex
	items []core.Transaction
}

func NewLedger(api API) *Ledger {
	return &Ledger{api: api}
}

// Load replaces the list with the server's.
func (l *Ledger) Load(ctx context.Context) error {
	txs, err := l.api.List(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.items = txs
	l.mu.Unlock()
	return nil
}

// Add creates a transaction and puts it at the top of the list.
func (l *Ledger) Add(ctx context.Context, d core.Draft) (core.Transaction, error) {
	created, err := l.api.Create(ctx, d)
	if err != nil {
		return core.Transaction{}, err
	}
	l.mu.Lock()
	l.items = append([]core.Transaction{created}, l.items...)
	l.mu.Unlock()
	return created, nil
}

// Edit updates a transaction and swaps in the server's version.
func (l *Ledger) Edit(ctx context.Context, id string, d core.Draft) (core.Transaction, error) {
	updated, err := l.api.Update(ctx, id, d)
	if err != nil {
		return core.Transaction{}, err
	}
	l.mu.Lock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i] = updated
		}
	}
	l.mu.Unlock()
	return updated, nil
}

// Remove deletes a transaction and drops it from the list.
func (l *Ledger) Remove(ctx context.Context, id string) error {
	if err := l.api.Delete(ctx, id); err != nil {
		return err
	}
	l.mu.Lock()
	l.items = slices.DeleteFunc(l.items, func(t core.Transaction) bool { return t.ID == id })
	l.mu.Unlock()
	return nil
}

// Items returns a copy of the current list.
func (l *Ledger) Items() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// Find returns the transaction with the given id.
func (l *Ledger) Find(id string) (core.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := slices.IndexFunc(l.items, func(t core.Transaction) bool { return t.ID == id })
	if i < 0 {
		return core.Transaction{}, false
	}
	return l.items[i], true
}
