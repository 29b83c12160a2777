// Package core provides money parsing and handling utilities.
//
// This file contains the Amount type used for every monetary value and the
// parser for amounts typed by a person.
package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an exact decimal monetary value. It is always non-negative on a
// valid transaction; polarity comes from the transaction type.
type Amount struct {
	decimal.Decimal
}

// MustAmount parses s and panics on failure. Meant for tests and constants.
func MustAmount(s string) Amount {
	return Amount{Decimal: decimal.RequireFromString(s)}
}

// ParseAmount converts user input to an Amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two decimals. Negative values are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-1")     -> error
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{Decimal: d.Round(2)}, nil
}

func (a Amount) Add(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(b.Decimal)}
}

func (a Amount) Sub(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Sub(b.Decimal)}
}

// Percent returns a as a percentage of total. A zero total yields zero.
func (a Amount) Percent(total Amount) float64 {
	if total.IsZero() {
		return 0
	}
	return a.Decimal.Mul(decimal.NewFromInt(100)).DivRound(total.Decimal, 4).InexactFloat64()
}

// Format renders the amount with two decimals.
func (a Amount) Format() string {
	return a.StringFixed(2)
}

// MarshalJSON writes the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*a = Amount{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return &ValidationError{Field: "amount", Reason: "must be a number"}
		}
		b = []byte(strings.TrimSpace(s))
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return &ValidationError{Field: "amount", Reason: "must be a number"}
	}
	a.Decimal = d
	return nil
}
