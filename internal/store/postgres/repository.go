package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

const returningColumns = `id, user_id, date, amount, category, note, type, created_at`

type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Connect opens dsn, applies migrations and returns a ready repository.
func Connect(dsn string, migrate bool) (*Repository, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := RunMigrations(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return NewRepository(db), nil
}

func (r *Repository) Close() error {
	return r.db.Close()
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
	query := `SELECT ` + returningColumns + ` FROM expenses WHERE user_id = $1 ORDER BY date ASC NULLS LAST, created_at ASC`
	if o.Descending {
		query = `SELECT ` + returningColumns + ` FROM expenses WHERE user_id = $1 ORDER BY date DESC NULLS LAST, created_at DESC`
	}

	rows, err := r.db.QueryContext(ctx, query, f.OwnerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return out, nil
}

func (r *Repository) Insert(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.OwnerKey == "" {
		return core.Transaction{}, store.ErrOwnerRequired
	}
	query := `
		INSERT INTO expenses (user_id, date, amount, category, note, type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + returningColumns

	created, err := scanTransaction(r.db.QueryRowContext(ctx, query,
		t.OwnerKey, t.Date.String(), t.Amount.String(), t.Category, t.Note, string(t.Type),
	))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("failed to create expense: %w", err)
	}
	return created, nil
}

func (r *Repository) Update(ctx context.Context, f store.Filter, d core.Draft) (core.Transaction, error) {
	if err := f.Validate(true); err != nil {
		return core.Transaction{}, err
	}
	// ids are UUIDs; anything else cannot match a row.
	if _, err := uuid.Parse(f.ID); err != nil {
		return core.Transaction{}, store.ErrNoRows
	}
	var amount any
	if d.Amount != nil {
		amount = d.Amount.String()
	}
	query := `
		UPDATE expenses
		SET date = $1, amount = $2, category = $3, note = $4, type = $5
		WHERE id = $6 AND user_id = $7
		RETURNING ` + returningColumns

	updated, err := scanTransaction(r.db.QueryRowContext(ctx, query,
		d.Date.String(), amount, d.Category, d.Note, string(d.Type), f.ID, f.OwnerKey,
	))
	if err == sql.ErrNoRows {
		return core.Transaction{}, store.ErrNoRows
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("failed to update expense: %w", err)
	}
	return updated, nil
}

func (r *Repository) Delete(ctx context.Context, f store.Filter) error {
	if err := f.Validate(true); err != nil {
		return err
	}
	if _, err := uuid.Parse(f.ID); err != nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, f.ID, f.OwnerKey); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction tolerates the nullable columns of older tables.
func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                   core.Transaction
		date, created       sql.NullTime
		category, note, typ sql.NullString
	)
	err := s.Scan(&t.ID, &t.OwnerKey, &date, &t.Amount, &category, &note, &typ, &created)
	if err != nil {
		return core.Transaction{}, err
	}
	if date.Valid {
		t.Date = core.NewDate(date.Time.Year(), int(date.Time.Month()), date.Time.Day())
	}
	t.Category = category.String
	t.Note = note.String
	t.Type = core.Type(typ.String)
	if t.Type == "" {
		t.Type = core.TypeExpense
	}
	if created.Valid {
		t.CreatedAt = created.Time
	}
	return t, nil
}
