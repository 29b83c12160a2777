// Package sqlite implements store.RecordStore on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/store"

	_ "modernc.org/sqlite"
)

// createdLayout is fixed width so created_at sorts lexically.
const createdLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `id, user_id, date, amount, category, note, type, created_at`

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Select(ctx context.Context, f store.Filter, o store.Order) ([]core.Transaction, error) {
	if err := f.Validate(false); err != nil {
		return nil, err
	}
	if o.Field != "" && o.Field != store.OrderByDate {
		return nil, fmt.Errorf("unsupported order field %q", o.Field)
	}
	dir := "ASC"
	if o.Descending {
		dir = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM expenses WHERE user_id = ? ORDER BY date %[2]s, created_at %[2]s, rowid %[2]s`, selectColumns, dir)

	rows, err := r.db.QueryContext(ctx, query, f.OwnerKey)
	if err != nil {
		return nil, fmt.Errorf("select expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(ctx, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *Repository) Insert(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.OwnerKey == "" {
		return core.Transaction{}, store.ErrOwnerRequired
	}
	t.ID = uuid.NewString()
	t.CreatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, date, amount, category, note, type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerKey, t.Date.String(), t.Amount.String(), t.Category, t.Note, string(t.Type),
		t.CreatedAt.Format(createdLayout),
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", t.ID,
		"date", t.Date.String(),
		"amount", t.Amount.String(),
		"type", t.Type)

	return t, nil
}

func (r *Repository) Update(ctx context.Context, f store.Filter, d core.Draft) (core.Transaction, error) {
	if err := f.Validate(true); err != nil {
		return core.Transaction{}, err
	}
	amount := ""
	if d.Amount != nil {
		amount = d.Amount.String()
	}
	row := r.db.QueryRowContext(ctx,
		`UPDATE expenses SET date = ?, amount = ?, category = ?, note = ?, type = ?
		 WHERE id = ? AND user_id = ?
		 RETURNING `+selectColumns,
		d.Date.String(), amount, d.Category, d.Note, string(d.Type), f.ID, f.OwnerKey,
	)
	t, err := scanTransaction(ctx, row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, store.ErrNoRows
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update expense: %w", err)
	}
	return t, nil
}

func (r *Repository) Delete(ctx context.Context, f store.Filter) error {
	if err := f.Validate(true); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, f.ID, f.OwnerKey); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads one row. A stored date that cannot be parsed is
// logged and left empty so one bad row does not hide the others.
func scanTransaction(ctx context.Context, s scanner) (core.Transaction, error) {
	var (
		t             core.Transaction
		date, created string
		typ           string
	)
	if err := s.Scan(&t.ID, &t.OwnerKey, &date, &t.Amount, &t.Category, &t.Note, &typ, &created); err != nil {
		if err == sql.ErrNoRows {
			return t, err
		}
		return t, fmt.Errorf("scan expense: %w", err)
	}
	t.Type = core.Type(typ)
	if d, err := core.ParseDate(date); err == nil {
		t.Date = d
	} else {
		slog.WarnContext(ctx, "Stored expense has an unreadable date", "id", t.ID, "date", date)
	}
	if ts, err := time.Parse(createdLayout, created); err == nil {
		t.CreatedAt = ts
	}
	return t, nil
}
