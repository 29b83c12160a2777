package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/store"
	"bilancio/internal/store/storetest"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "data", "bilancio.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, newTestRepository(t))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bilancio.db")
	repo, err := NewRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repo.Close()

	repo, err = NewRepository(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	repo.Close()
}

func TestUnreadableDateIsKept(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, date, amount, category, note, type, created_at)
		 VALUES ('bad', 'alice', 'not-a-date', '5', '', '', 'expense', ?)`,
		time.Now().UTC().Format(createdLayout))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.Insert(ctx, core.Transaction{OwnerKey: "alice", Date: core.NewDate(2024, 1, 2), Amount: core.MustAmount("1"), Type: core.TypeExpense}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := repo.Select(ctx, store.Filter{OwnerKey: "alice"}, store.NewestFirst)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both rows, got %d", len(rows))
	}
	var bad *core.Transaction
	for i := range rows {
		if rows[i].ID == "bad" {
			bad = &rows[i]
		}
	}
	if bad == nil || !bad.Date.IsEmpty() {
		t.Fatalf("expected the unreadable row with an empty date, got %+v", bad)
	}
}
