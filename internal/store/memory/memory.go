package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

// Store keeps transactions in process memory. Rows are lost on restart.
type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	now   func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// Select returns copies of the owner's rows.
func (s *Store) Select(_ context.Context, f store.Filter, o store.Order) ([]core.Transaction, error) {
	if err := f.Validate(false); err != nil {
		return nil, err
	}
	if o.Field != "" && o.Field != store.OrderByDate {
		return nil, fmt.Errorf("unsupported order field %q", o.Field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Transaction, 0)
	for _, t := range s.items {
		if t.OwnerKey == f.OwnerKey {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		c := a.Date.Compare(b.Date.Time)
		if c == 0 {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if o.Descending {
			return -c
		}
		return c
	})
	return out, nil
}

// Insert assigns a random id and stores the row.
func (s *Store) Insert(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if t.OwnerKey == "" {
		return core.Transaction{}, store.ErrOwnerRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = s.now().UTC()
	s.items = append(s.items, t)
	return t, nil
}

func (s *Store) Update(_ context.Context, f store.Filter, d core.Draft) (core.Transaction, error) {
	if err := f.Validate(true); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == f.ID && t.OwnerKey == f.OwnerKey {
			s.items[i] = d.Apply(t)
			return s.items[i], nil
		}
	}
	return core.Transaction{}, store.ErrNoRows
}

func (s *Store) Delete(_ context.Context, f store.Filter) error {
	if err := f.Validate(true); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.DeleteFunc(s.items, func(t core.Transaction) bool {
		return t.ID == f.ID && t.OwnerKey == f.OwnerKey
	})
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of stored rows across all owners.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
