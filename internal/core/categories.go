package core

const (
	// Uncategorized labels transactions without a category.
	Uncategorized = "Uncategorized"
	// AllCategories is the category filter value that keeps every row.
	AllCategories = "All Categories"
)

// SuggestedCategories lists the categories offered when entering a
// transaction. They are suggestions only; any category is accepted.
var SuggestedCategories = map[Type][]string{
	TypeIncome: {
		"Salary",
		"Tax Return",
		"Scholarship",
		"Gift",
		"Bonus",
		"Reimbursement",
	},
	TypeExpense: {
		"Food",
		"Groceries",
		"Transport",
		"Rent",
		"Utilities",
		"Clothes",
		"Entertainment",
		"Beauty",
		"Education",
		"Health",
		"Other",
	},
}
