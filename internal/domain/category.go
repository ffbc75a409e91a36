package domain

// Category taxonomy. Every ingested transaction is normalized into one of
// these before aggregation.
const (
	CategoryRevenue        = "Revenue"
	CategoryExpense        = "Expense"
	CategorySaaS           = "SaaS"
	CategoryInfrastructure = "Infrastructure"
	CategoryMarketing      = "Marketing"
	CategoryPayroll        = "Payroll"
	CategoryContractor     = "Contractor"
	CategoryOffice         = "Office"
	CategoryTravel         = "Travel"
	CategoryMeals          = "Meals & Entertainment"
	CategoryRefund         = "Refund"
	CategoryFee            = "Fee"
	CategoryInterest       = "Interest"
	CategoryTax            = "Tax"
	CategoryTransfer       = "Transfer"
	CategoryPayout         = "Payout"
	CategoryAdjustment     = "Adjustment"
	CategoryOther          = "Other"
	CategoryUncategorized  = "Uncategorized"
)

// ExpenseCategories are the taxonomy categories counted as expenses when
// aggregating daily series, in addition to any negative-amount transaction.
var ExpenseCategories = []string{
	CategoryExpense,
	CategorySaaS,
	CategoryInfrastructure,
	CategoryMarketing,
	CategoryPayroll,
	CategoryContractor,
	CategoryOffice,
	CategoryTravel,
	CategoryMeals,
}

// IsExpenseCategory reports whether the category counts toward expenses.
func IsExpenseCategory(category string) bool {
	for _, c := range ExpenseCategories {
		if c == category {
			return true
		}
	}
	return false
}
