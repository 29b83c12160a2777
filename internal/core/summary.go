package core

import (
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CategoryShare is one row of a category breakdown.
type CategoryShare struct {
	Name       string  `json:"category"`
	Amount     Amount  `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// Breakdown groups the transactions of one type by category.
// Empty is set when there is nothing to break down, in which case Rows is empty
// and no percentage was computed.
type Breakdown struct {
	View  Type            `json:"type"`
	Total Amount          `json:"total"`
	Rows  []CategoryShare `json:"rows"`
	Empty bool            `json:"empty"`
}

// Totals are the income, expense and net balance of a set of transactions.
type Totals struct {
	Income  Amount `json:"totalIncome"`
	Expense Amount `json:"totalExpense"`
	Balance Amount `json:"balance"`
}

// MonthView is everything a month dashboard shows.
type MonthView struct {
	Year         int           `json:"year"`
	Month        int           `json:"month"`
	Totals       Totals        `json:"totals"`
	Count        int           `json:"count"`
	TotalCount   int           `json:"totalCount"`
	Breakdown    Breakdown     `json:"breakdown"`
	Categories   []string      `json:"categories"`
	Category     string        `json:"category"`
	Transactions []Transaction `json:"transactions"`
	// TableTotals and TableCount describe Transactions, after the category filter.
	TableTotals Totals `json:"tableTotals"`
	TableCount  int    `json:"tableCount"`
}

// FilterMonth keeps the transactions dated in the given year and month.
// Transactions without a usable date are dropped.
func FilterMonth(txs []Transaction, year int, month time.Month) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Date.IsEmpty() {
			continue
		}
		if t.Date.Year() == year && t.Date.Time.Month() == month {
			out = append(out, t)
		}
	}
	return out
}

// ComputeTotals sums income and expense. Any non-income type counts as expense.
func ComputeTotals(txs []Transaction) Totals {
	var totals Totals
	for _, t := range txs {
		if t.Type.IsIncome() {
			totals.Income = totals.Income.Add(t.Amount)
		} else {
			totals.Expense = totals.Expense.Add(t.Amount)
		}
	}
	totals.Balance = totals.Income.Sub(totals.Expense)
	return totals
}

// ComputeBreakdown groups the transactions matching view by category.
// Percentages are relative to the total of the selected type. Rows are
// ordered by amount, largest first; ties keep first-appearance order.
func ComputeBreakdown(txs []Transaction, view Type) Breakdown {
	b := Breakdown{View: view, Rows: []CategoryShare{}}

	index := make(map[string]int)
	for _, t := range txs {
		if t.Type.IsIncome() != view.IsIncome() {
			continue
		}
		name := t.DisplayCategory()
		i, ok := index[name]
		if !ok {
			i = len(b.Rows)
			index[name] = i
			b.Rows = append(b.Rows, CategoryShare{Name: name})
		}
		b.Rows[i].Amount = b.Rows[i].Amount.Add(t.Amount)
		b.Total = b.Total.Add(t.Amount)
	}

	if len(b.Rows) == 0 || b.Total.IsZero() {
		b.Rows = []CategoryShare{}
		b.Empty = true
		return b
	}

	for i := range b.Rows {
		b.Rows[i].Percentage = b.Rows[i].Amount.Percent(b.Total)
	}
	slices.SortStableFunc(b.Rows, func(x, y CategoryShare) int {
		return y.Amount.Cmp(x.Amount.Decimal)
	})
	return b
}

// CategoryOptions returns the distinct categories of txs sorted for display.
// A missing category appears as the empty string.
func CategoryOptions(txs []Transaction) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, t := range txs {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	collate.New(language.English).SortStrings(out)
	return out
}

// FilterCategory keeps the transactions whose category equals category.
// AllCategories keeps everything.
func FilterCategory(txs []Transaction, category string) []Transaction {
	if category == AllCategories {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// BuildMonthView computes the dashboard for one month. Totals, breakdown and
// category options use the whole month; only the transaction table honors
// the category filter.
func BuildMonthView(txs []Transaction, year int, month time.Month, view Type, category string) MonthView {
	if category == "" {
		category = AllCategories
	}
	monthly := FilterMonth(txs, year, month)
	table := FilterCategory(monthly, category)
	return MonthView{
		Year:         year,
		Month:        int(month),
		Totals:       ComputeTotals(monthly),
		Count:        len(monthly),
		TotalCount:   len(txs),
		Breakdown:    ComputeBreakdown(monthly, view),
		Categories:   CategoryOptions(monthly),
		Category:     category,
		Transactions: table,
		TableTotals:  ComputeTotals(table),
		TableCount:   len(table),
	}
}

// YearOptions returns the selectable years around base.
func YearOptions(base int) []int {
	years := make([]int, 0, 7)
	for y := base - 3; y <= base+3; y++ {
		years = append(years, y)
	}
	return years
}
