package http

import (
	"bilancio/internal/core"
	"bilancio/internal/services"
)

// moneyPayload carries amounts as integer cents plus a decimal string.
// Currency and locale formatting stay on the client side.
type moneyPayload struct {
	Cents   int64  `json:"cents"`
	Decimal string `json:"decimal"`
}

func moneyOut(m core.Money) moneyPayload {
	return moneyPayload{Cents: m.Cents, Decimal: m.Decimal()}
}

type transactionPayload struct {
	ID         int64        `json:"id"`
	Amount     moneyPayload `json:"amount"`
	OccurredOn string       `json:"occurred_on"`
	Kind       string       `json:"kind"`
	CategoryID int64        `json:"category_id,omitempty"`

	GroupID          string `json:"group_id,omitempty"`
	InstallmentIndex int    `json:"installment_index,omitempty"`
	InstallmentTotal int    `json:"installment_total,omitempty"`
}

func transactionOut(t core.Transaction) transactionPayload {
	p := transactionPayload{
		ID:         t.ID,
		Amount:     moneyOut(t.Amount),
		OccurredOn: t.OccurredOn.Format(dateLayout),
		Kind:       string(t.Kind),
		CategoryID: t.CategoryID,
	}
	if t.InGroup() {
		p.GroupID = t.GroupID.String()
		p.InstallmentIndex = t.Index
		p.InstallmentTotal = t.Total
	}
	return p
}

func transactionsOut(transactions []core.Transaction) []transactionPayload {
	out := make([]transactionPayload, len(transactions))
	for i, t := range transactions {
		out[i] = transactionOut(t)
	}
	return out
}

type goalPayload struct {
	ID             int64        `json:"id"`
	Name           string       `json:"name"`
	TargetAmount   moneyPayload `json:"target_amount"`
	CurrentAmount  moneyPayload `json:"current_amount"`
	TargetDate     string       `json:"target_date"`
	Status         string       `json:"status"`
	Category       string       `json:"category,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	Progress       int          `json:"progress"`
	DaysRemaining  int          `json:"days_remaining"`
	AtRisk         bool         `json:"at_risk"`
	NearCompletion bool         `json:"near_completion"`
}

func goalOut(v services.GoalView) goalPayload {
	g := v.Goal
	return goalPayload{
		ID:             g.ID,
		Name:           g.Name,
		TargetAmount:   moneyOut(g.TargetAmount),
		CurrentAmount:  moneyOut(g.CurrentAmount),
		TargetDate:     g.TargetDate.Format(dateLayout),
		Status:         string(g.Status),
		Category:       string(g.Category),
		Notes:          g.Notes,
		Progress:       v.Progress,
		DaysRemaining:  v.DaysRemaining,
		AtRisk:         v.AtRisk,
		NearCompletion: v.NearCompletion,
	}
}

type goalSummaryPayload struct {
	Total          int          `json:"total"`
	Active         int          `json:"active"`
	Completed      int          `json:"completed"`
	Cancelled      int          `json:"cancelled"`
	TotalTarget    moneyPayload `json:"total_target"`
	TotalSaved     moneyPayload `json:"total_saved"`
	AtRisk         int          `json:"at_risk"`
	NearCompletion int          `json:"near_completion"`
}

type budgetPayload struct {
	ID         int64        `json:"id"`
	Amount     moneyPayload `json:"amount"`
	CategoryID int64        `json:"category_id,omitempty"`
	Month      int          `json:"month"`
	Year       int          `json:"year"`
}

func budgetOut(b core.Budget) budgetPayload {
	return budgetPayload{
		ID:         b.ID,
		Amount:     moneyOut(b.Amount),
		CategoryID: b.CategoryID,
		Month:      b.Month,
		Year:       b.Year,
	}
}

type budgetViewPayload struct {
	Budget     budgetPayload `json:"budget"`
	Spent      moneyPayload  `json:"spent"`
	Remaining  moneyPayload  `json:"remaining"`
	Percentage int           `json:"percentage"`
}

func budgetViewOut(v services.BudgetWithView) budgetViewPayload {
	return budgetViewPayload{
		Budget:     budgetOut(v.Budget),
		Spent:      moneyOut(v.View.Spent),
		Remaining:  moneyOut(v.View.Remaining),
		Percentage: v.View.Percentage,
	}
}

type overviewPayload struct {
	Period         string              `json:"period"`
	Previous       string              `json:"previous"`
	Next           string              `json:"next"`
	Budgets        []budgetViewPayload `json:"budgets"`
	TotalBudget    moneyPayload        `json:"total_budget"`
	TotalSpent     moneyPayload        `json:"total_spent"`
	TotalRemaining moneyPayload        `json:"total_remaining"`
	Percentage     int                 `json:"percentage"`
}

func overviewOut(o services.PeriodOverview) overviewPayload {
	budgets := make([]budgetViewPayload, len(o.Budgets))
	for i, b := range o.Budgets {
		budgets[i] = budgetViewOut(b)
	}
	return overviewPayload{
		Period:         o.Period.String(),
		Previous:       o.Previous.String(),
		Next:           o.Next.String(),
		Budgets:        budgets,
		TotalBudget:    moneyOut(o.Overview.TotalBudget),
		TotalSpent:     moneyOut(o.Overview.TotalSpent),
		TotalRemaining: moneyOut(o.Overview.TotalRemaining),
		Percentage:     o.Overview.Percentage,
	}
}
