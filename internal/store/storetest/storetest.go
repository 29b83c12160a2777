// Package storetest holds the behavior every store.RecordStore must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

// Run exercises s against the record store contract. s must be empty.
func Run(t *testing.T, s store.RecordStore) {
	t.Helper()
	ctx := context.Background()

	insert := func(owner string, date core.Date, amount string, typ core.Type) core.Transaction {
		t.Helper()
		got, err := s.Insert(ctx, core.Transaction{
			OwnerKey: owner,
			Date:     date,
			Amount:   core.MustAmount(amount),
			Category: "Food",
			Type:     typ,
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if got.ID == "" {
			t.Fatalf("insert did not assign an id")
		}
		return got
	}

	older := insert("alice", core.NewDate(2024, 3, 1), "10", core.TypeExpense)
	newer := insert("alice", core.NewDate(2024, 3, 20), "2500.50", core.TypeIncome)
	foreign := insert("bob", core.NewDate(2024, 3, 10), "7", core.TypeExpense)

	t.Run("select is owner scoped and newest first", func(t *testing.T) {
		rows, err := s.Select(ctx, store.Filter{OwnerKey: "alice"}, store.NewestFirst)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		if rows[0].ID != newer.ID || rows[1].ID != older.ID {
			t.Fatalf("unexpected order: %s, %s", rows[0].ID, rows[1].ID)
		}
		if !rows[0].Amount.Equal(core.MustAmount("2500.50").Decimal) || rows[0].Type != core.TypeIncome {
			t.Fatalf("row did not round trip: %+v", rows[0])
		}
		if !rows[0].Date.Equal(core.NewDate(2024, 3, 20).Time) {
			t.Fatalf("date did not round trip: %v", rows[0].Date)
		}
	})

	t.Run("select without owner fails", func(t *testing.T) {
		if _, err := s.Select(ctx, store.Filter{}, store.NewestFirst); !errors.Is(err, store.ErrOwnerRequired) {
			t.Fatalf("expected ErrOwnerRequired, got %v", err)
		}
	})

	t.Run("update replaces fields", func(t *testing.T) {
		amount := core.MustAmount("12.34")
		got, err := s.Update(ctx, store.Filter{OwnerKey: "alice", ID: older.ID}, core.Draft{
			Date:     core.NewDate(2024, 2, 28),
			Amount:   &amount,
			Category: "Rent",
			Note:     "february",
			Type:     core.TypeExpense,
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.ID != older.ID || got.OwnerKey != "alice" {
			t.Fatalf("identity fields changed: %+v", got)
		}
		if got.Category != "Rent" || got.Note != "february" || !got.Amount.Equal(amount.Decimal) {
			t.Fatalf("fields not replaced: %+v", got)
		}
	})

	t.Run("update of a foreign row matches nothing", func(t *testing.T) {
		amount := core.MustAmount("1")
		_, err := s.Update(ctx, store.Filter{OwnerKey: "alice", ID: foreign.ID}, core.Draft{
			Date:   core.NewDate(2024, 1, 1),
			Amount: &amount,
			Type:   core.TypeExpense,
		})
		if !errors.Is(err, store.ErrNoRows) {
			t.Fatalf("expected ErrNoRows, got %v", err)
		}
	})

	t.Run("delete is scoped and idempotent", func(t *testing.T) {
		if err := s.Delete(ctx, store.Filter{OwnerKey: "alice", ID: foreign.ID}); err != nil {
			t.Fatalf("delete foreign: %v", err)
		}
		rows, err := s.Select(ctx, store.Filter{OwnerKey: "bob"}, store.NewestFirst)
		if err != nil || len(rows) != 1 {
			t.Fatalf("foreign row must survive, got %d rows (err=%v)", len(rows), err)
		}

		if err := s.Delete(ctx, store.Filter{OwnerKey: "alice", ID: older.ID}); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Delete(ctx, store.Filter{OwnerKey: "alice", ID: older.ID}); err != nil {
			t.Fatalf("second delete: %v", err)
		}
		rows, err = s.Select(ctx, store.Filter{OwnerKey: "alice"}, store.NewestFirst)
		if err != nil || len(rows) != 1 || rows[0].ID != newer.ID {
			t.Fatalf("expected only the newer row to remain, got %+v (err=%v)", rows, err)
		}
	})

	t.Run("delete requires an id", func(t *testing.T) {
		if err := s.Delete(ctx, store.Filter{OwnerKey: "alice"}); !errors.Is(err, store.ErrIDRequired) {
			t.Fatalf("expected ErrIDRequired, got %v", err)
		}
	})
}
