package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

type (
	// Type is the polarity of a transaction.
	Type string

	Date struct {
		time.Time
	}

	// Transaction is a single income or expense entry owned by one owner key.
	Transaction struct {
		ID        string    `json:"id"`
		OwnerKey  string    `json:"user_id"`
		Date      Date      `json:"date"`
		Amount    Amount    `json:"amount"`
		Category  string    `json:"category"`
		Note      string    `json:"note"`
		Type      Type      `json:"type"`
		CreatedAt time.Time `json:"created_at,omitzero"`
	}

	// Draft is the writable part of a transaction as submitted by a client.
	// Amount is nil when the client did not send one.
	Draft struct {
		Date     Date    `json:"date"`
		Amount   *Amount `json:"amount"`
		Category string  `json:"category"`
		Note     string  `json:"note"`
		Type     Type    `json:"type"`
	}
)

// IsIncome reports whether t counts towards income. Every other value,
// including unknown ones, counts as expense.
func (t Type) IsIncome() bool {
	return t == TypeIncome
}

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts a calendar day or an RFC 3339 timestamp and keeps the day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	return Date{}, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
}

// IsEmpty reports whether the date is absent.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &ValidationError{Field: "date", Reason: "must be a string"}
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Normalize trims free text, rounds the amount half-up to cents and applies
// the expense default for a missing type.
func (d Draft) Normalize() Draft {
	if d.Amount != nil {
		rounded := Amount{Decimal: d.Amount.Round(2)}
		d.Amount = &rounded
	}
	d.Category = strings.TrimSpace(d.Category)
	d.Note = strings.TrimSpace(d.Note)
	d.Type = Type(strings.ToLower(strings.TrimSpace(string(d.Type))))
	if d.Type == "" {
		d.Type = TypeExpense
	}
	return d
}

// Validate checks the minimum fields needed to persist a transaction.
// It expects a normalized draft.
func (d Draft) Validate() error {
	if d.Date.IsEmpty() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	if d.Amount == nil {
		return &ValidationError{Field: "amount", Reason: "is required"}
	}
	if d.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if !d.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "must be income or expense"}
	}
	if len(d.Note) > 500 {
		return &ValidationError{Field: "note", Reason: "too long (max 500 characters)"}
	}
	return nil
}

// Apply copies the draft fields onto a transaction, leaving identity fields untouched.
func (d Draft) Apply(t Transaction) Transaction {
	t.Date = d.Date
	if d.Amount != nil {
		t.Amount = *d.Amount
	}
	t.Category = d.Category
	t.Note = d.Note
	t.Type = d.Type
	return t
}

// DraftOf returns the writable fields of t.
func DraftOf(t Transaction) Draft {
	amount := t.Amount
	return Draft{
		Date:     t.Date,
		Amount:   &amount,
		Category: t.Category,
		Note:     t.Note,
		Type:     t.Type,
	}
}

// DisplayCategory returns the category or the Uncategorized placeholder.
func (t Transaction) DisplayCategory() string {
	if strings.TrimSpace(t.Category) == "" {
		return Uncategorized
	}
	return t.Category
}
