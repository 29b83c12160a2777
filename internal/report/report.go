// Package report renders month dashboards and transaction lists as text.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"bilancio/internal/core"
)

const barWidth = 20

// Options controls rendering.
type Options struct {
	// Color enables ANSI colors for signed amounts.
	Color bool
	// Now is the reference time for relative timestamps. Zero means time.Now.
	Now time.Time
}

type palette struct {
	income  *color.Color
	expense *color.Color
	muted   *color.Color
	title   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		income:  color.New(color.FgGreen),
		expense: color.New(color.FgRed),
		muted:   color.New(color.Faint),
		title:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.income, p.expense, p.muted, p.title} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) signed(a core.Amount, income bool) string {
	s := Signed(a, income)
	if income {
		return p.income.Sprint(s)
	}
	return p.expense.Sprint(s)
}

// MonthLabel formats a year and month as "March 2024".
func MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month, year)
}

// Signed prefixes an amount with + for income and - for expense.
func Signed(a core.Amount, income bool) string {
	if income {
		return "+" + a.Format()
	}
	return "-" + a.Format()
}

// Balance prefixes the net balance with its sign.
func Balance(a core.Amount) string {
	if a.IsNegative() {
		return "-" + a.Abs().StringFixed(2)
	}
	return "+" + a.Format()
}

// Percent formats a share with one decimal.
func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// Bar draws a fixed-width bar for a percentage between 0 and 100.
func Bar(p float64) string {
	filled := int(math.Round(p / 100 * barWidth))
	filled = max(0, min(barWidth, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// Month writes the dashboard for one month.
func Month(w io.Writer, v core.MonthView, opts Options) error {
	p := newPalette(opts.Color)
	month := time.Month(v.Month)

	var b strings.Builder
	fmt.Fprintln(&b, p.title.Sprint(MonthLabel(v.Year, month)))
	fmt.Fprintln(&b)

	if err := writeTotals(&b, v.Totals, "Balance", fmt.Sprintf("%d of %d", v.Count, v.TotalCount), p); err != nil {
		return err
	}

	fmt.Fprintln(&b)
	writeBreakdown(&b, v.Breakdown, p)

	fmt.Fprintln(&b)
	category := v.Category
	if category == "" {
		category = core.AllCategories
	}
	fmt.Fprintf(&b, "Category: %s\n", category)
	fmt.Fprintf(&b, "Showing %d of %d transactions\n", v.TableCount, v.TotalCount)
	if err := writeTotals(&b, v.TableTotals, "Net", "", p); err != nil {
		return err
	}
	fmt.Fprintln(&b)
	if err := writeTable(&b, v.Transactions, false, opts, p); err != nil {
		return err
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeTotals(b *strings.Builder, t core.Totals, balanceLabel, count string, p palette) error {
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Income\t%s\n", p.signed(t.Income, true))
	fmt.Fprintf(tw, "Expenses\t%s\n", p.signed(t.Expense, false))
	balance := Balance(t.Balance)
	if t.Balance.IsNegative() {
		balance = p.expense.Sprint(balance)
	} else {
		balance = p.income.Sprint(balance)
	}
	fmt.Fprintf(tw, "%s\t%s\n", balanceLabel, balance)
	if count != "" {
		fmt.Fprintf(tw, "Transactions\t%s\n", count)
	}
	return tw.Flush()
}

func writeBreakdown(b *strings.Builder, bd core.Breakdown, p palette) {
	label := "Expense"
	if bd.View.IsIncome() {
		label = "Income"
	}
	if bd.Empty {
		fmt.Fprintf(b, "No %s transactions this month.\n", strings.ToLower(label))
		return
	}

	fmt.Fprintf(b, "%s breakdown (total %s)\n", label, bd.Total.Format())
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, row := range bd.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", row.Name, p.muted.Sprint(Bar(row.Percentage)), row.Amount.Format(), Percent(row.Percentage))
	}
	tw.Flush()
}

// Transactions writes a table of transactions including their ids.
func Transactions(w io.Writer, txs []core.Transaction, opts Options) error {
	var b strings.Builder
	if err := writeTable(&b, txs, true, opts, newPalette(opts.Color)); err != nil {
		return err
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTable(b *strings.Builder, txs []core.Transaction, withID bool, opts Options, p palette) error {
	if len(txs) == 0 {
		fmt.Fprintln(b, "No transactions.")
		return nil
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	if withID {
		fmt.Fprintln(tw, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT\tNOTE\tADDED")
	} else {
		fmt.Fprintln(tw, "DATE\tTYPE\tCATEGORY\tAMOUNT\tNOTE")
	}
	for _, t := range txs {
		amount := p.signed(t.Amount, t.Type.IsIncome())
		if withID {
			added := ""
			if !t.CreatedAt.IsZero() {
				added = humanize.RelTime(t.CreatedAt, now, "ago", "from now")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date, t.Type, t.DisplayCategory(), amount, t.Note, added)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Date, t.Type, t.DisplayCategory(), amount, t.Note)
	}
	return tw.Flush()
}
