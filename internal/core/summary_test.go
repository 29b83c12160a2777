package core

import (
	"math"
	"slices"
	"testing"
	"time"
)

func sampleMonth() []Transaction {
	return []Transaction{
		{ID: "1", Date: NewDate(2024, 3, 5), Amount: MustAmount("3000"), Category: "Salary", Type: TypeIncome},
		{ID: "2", Date: NewDate(2024, 3, 10), Amount: MustAmount("1200"), Category: "Rent", Type: TypeExpense},
		{ID: "3", Date: NewDate(2024, 3, 12), Amount: MustAmount("300"), Category: "Food", Type: TypeExpense},
		{ID: "4", Date: NewDate(2024, 4, 1), Amount: MustAmount("50"), Category: "Food", Type: TypeExpense},
	}
}

func TestFilterMonth(t *testing.T) {
	txs := append(sampleMonth(), Transaction{ID: "5", Amount: MustAmount("10")})
	got := FilterMonth(txs, 2024, time.March)
	if len(got) != 3 {
		t.Fatalf("expected 3 transactions in March, got %d", len(got))
	}
	for _, tx := range got {
		if tx.ID == "4" || tx.ID == "5" {
			t.Fatalf("unexpected transaction %s in March", tx.ID)
		}
	}
}

func TestComputeTotals(t *testing.T) {
	totals := ComputeTotals(FilterMonth(sampleMonth(), 2024, time.March))
	if totals.Income.Format() != "3000.00" {
		t.Fatalf("income: got %s", totals.Income.Format())
	}
	if totals.Expense.Format() != "1500.00" {
		t.Fatalf("expense: got %s", totals.Expense.Format())
	}
	if totals.Balance.Format() != "1500.00" {
		t.Fatalf("balance: got %s", totals.Balance.Format())
	}
}

func TestComputeTotalsUnknownTypeIsExpense(t *testing.T) {
	totals := ComputeTotals([]Transaction{{Amount: MustAmount("5"), Type: "refund"}})
	if totals.Expense.Format() != "5.00" || !totals.Income.IsZero() {
		t.Fatalf("expected unknown type to count as expense, got %+v", totals)
	}
	if totals.Balance.Format() != "-5.00" {
		t.Fatalf("expected negative balance, got %s", totals.Balance.Format())
	}
}

func TestComputeBreakdown(t *testing.T) {
	b := ComputeBreakdown(FilterMonth(sampleMonth(), 2024, time.March), TypeExpense)
	if b.Empty {
		t.Fatalf("expected rows")
	}
	if len(b.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(b.Rows))
	}
	if b.Rows[0].Name != "Rent" || b.Rows[0].Percentage != 80 {
		t.Fatalf("unexpected first row %+v", b.Rows[0])
	}
	if b.Rows[1].Name != "Food" || b.Rows[1].Percentage != 20 {
		t.Fatalf("unexpected second row %+v", b.Rows[1])
	}
	if b.Total.Format() != "1500.00" {
		t.Fatalf("unexpected total %s", b.Total.Format())
	}
}

func TestComputeBreakdownIncomeOnly(t *testing.T) {
	b := ComputeBreakdown(FilterMonth(sampleMonth(), 2024, time.March), TypeIncome)
	if len(b.Rows) != 1 || b.Rows[0].Name != "Salary" || b.Rows[0].Percentage != 100 {
		t.Fatalf("unexpected income breakdown %+v", b)
	}
}

func TestComputeBreakdownEmpty(t *testing.T) {
	b := ComputeBreakdown(nil, TypeExpense)
	if !b.Empty || len(b.Rows) != 0 {
		t.Fatalf("expected empty breakdown, got %+v", b)
	}

	zero := ComputeBreakdown([]Transaction{{Amount: MustAmount("0"), Type: TypeExpense}}, TypeExpense)
	if !zero.Empty {
		t.Fatalf("expected empty breakdown for zero total, got %+v", zero)
	}
}

func TestComputeBreakdownUncategorized(t *testing.T) {
	txs := []Transaction{
		{Amount: MustAmount("1"), Type: TypeExpense},
		{Amount: MustAmount("2"), Category: "Food", Type: TypeExpense},
		{Amount: MustAmount("4"), Type: TypeExpense},
	}
	b := ComputeBreakdown(txs, TypeExpense)
	if len(b.Rows) != 2 || b.Rows[0].Name != Uncategorized || b.Rows[0].Amount.Format() != "5.00" {
		t.Fatalf("unexpected breakdown %+v", b.Rows)
	}
}

func TestBreakdownPercentagesSumTo100(t *testing.T) {
	txs := []Transaction{
		{Amount: MustAmount("1"), Category: "a", Type: TypeExpense},
		{Amount: MustAmount("1"), Category: "b", Type: TypeExpense},
		{Amount: MustAmount("1"), Category: "c", Type: TypeExpense},
	}
	var sum float64
	for _, row := range ComputeBreakdown(txs, TypeExpense).Rows {
		sum += row.Percentage
	}
	if math.Abs(sum-100) > 0.01 {
		t.Fatalf("expected percentages to sum to 100, got %v", sum)
	}
}

func TestCategoryOptions(t *testing.T) {
	txs := []Transaction{
		{Category: "food"},
		{Category: "Rent"},
		{Category: ""},
		{Category: "Food"},
		{Category: "rent"},
		{Category: "Rent"},
	}
	got := CategoryOptions(txs)
	want := []string{"", "food", "Food", "Rent", "rent"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	// Case variants are distinct options; locale order groups them together.
	if got[0] != "" {
		t.Fatalf("expected empty category first, got %v", got)
	}
	if !slices.Contains(got[1:3], "food") || !slices.Contains(got[1:3], "Food") {
		t.Fatalf("expected food variants before rent variants, got %v", got)
	}
}

func TestFilterCategory(t *testing.T) {
	txs := sampleMonth()
	if got := FilterCategory(txs, AllCategories); len(got) != len(txs) {
		t.Fatalf("expected all rows, got %d", len(got))
	}
	got := FilterCategory(txs, "Food")
	if len(got) != 2 {
		t.Fatalf("expected 2 Food rows, got %d", len(got))
	}
}

func TestBuildMonthView(t *testing.T) {
	v := BuildMonthView(sampleMonth(), 2024, time.March, TypeExpense, "Food")
	if v.Count != 3 || v.TotalCount != 4 {
		t.Fatalf("unexpected counts %d/%d", v.Count, v.TotalCount)
	}
	if len(v.Transactions) != 1 || v.Transactions[0].ID != "3" {
		t.Fatalf("expected only the March Food row, got %+v", v.Transactions)
	}
	if v.Totals.Expense.Format() != "1500.00" {
		t.Fatalf("totals must ignore the category filter, got %s", v.Totals.Expense.Format())
	}
	if want := []string{"Food", "Rent", "Salary"}; !slices.Equal(v.Categories, want) {
		t.Fatalf("expected %v, got %v", want, v.Categories)
	}
	if v.TableCount != 1 {
		t.Fatalf("table count must follow the category filter, got %d", v.TableCount)
	}
	if v.TableTotals.Income.Format() != "0.00" || v.TableTotals.Expense.Format() != "300.00" || v.TableTotals.Balance.Format() != "-300.00" {
		t.Fatalf("unexpected table totals %+v", v.TableTotals)
	}

	all := BuildMonthView(sampleMonth(), 2024, time.March, TypeExpense, "")
	if all.Category != AllCategories || len(all.Transactions) != 3 {
		t.Fatalf("expected default filter to keep the month, got %+v", all)
	}
	if all.TableCount != 3 || all.TableTotals.Balance.Format() != all.Totals.Balance.Format() || all.TableTotals.Expense.Format() != "1500.00" {
		t.Fatalf("unfiltered table figures should match the month, got %d %+v", all.TableCount, all.TableTotals)
	}
}

func TestYearOptions(t *testing.T) {
	got := YearOptions(2024)
	if len(got) != 7 || got[0] != 2021 || got[6] != 2027 {
		t.Fatalf("unexpected years %v", got)
	}
}
