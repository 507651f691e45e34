package core

type (
	// BudgetView is the derived monetary rollup for one budget over its
	// period. Remaining goes negative when the budget is overspent; the
	// percentage is clamped at 100.
	BudgetView struct {
		Spent      Money
		Remaining  Money
		Percentage int
	}

	// Overview is the rollup across every budget of a period. Each budget's
	// spend is summed independently: a general budget and a category budget
	// claiming the same expense are both counted. Reconciling that overlap
	// is a known approximation carried over from the product.
	Overview struct {
		TotalBudget    Money
		TotalSpent     Money
		TotalRemaining Money
		Percentage     int
	}
)

// SpentAgainst sums the expense transactions that count against the budget:
// all expenses for a general budget, matching-category expenses otherwise.
// Income transactions never count.
func (b Budget) SpentAgainst(transactions []Transaction) Money {
	var spent Money
	for _, t := range transactions {
		if t.Kind != Expense {
			continue
		}
		if b.CategoryID != 0 && t.CategoryID != b.CategoryID {
			continue
		}
		spent = spent.Add(t.Amount)
	}
	return spent
}

// ComputeBudgetView derives spent/remaining/percentage for one budget from
// the period's transactions. Budget amounts are validated positive at
// creation, so the percentage division is safe.
func ComputeBudgetView(b Budget, transactions []Transaction) BudgetView {
	spent := b.SpentAgainst(transactions)
	return BudgetView{
		Spent:      spent,
		Remaining:  b.Amount.Sub(spent),
		Percentage: PercentageOf(spent, b.Amount),
	}
}

// ComputeOverview derives the period totals across all budgets.
func ComputeOverview(budgets []Budget, transactions []Transaction) Overview {
	var totalBudget, totalSpent Money
	for _, b := range budgets {
		totalBudget = totalBudget.Add(b.Amount)
		totalSpent = totalSpent.Add(b.SpentAgainst(transactions))
	}
	return Overview{
		TotalBudget:    totalBudget,
		TotalSpent:     totalSpent,
		TotalRemaining: totalBudget.Sub(totalSpent),
		Percentage:     PercentageOf(totalSpent, totalBudget),
	}
}
