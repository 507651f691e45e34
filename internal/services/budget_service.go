package services

import (
	"context"
	"fmt"

	"bilancio/internal/core"
)

// BudgetService handles budget allotments and the period rollups.
type BudgetService struct {
	budgets      BudgetStore
	transactions TransactionStore
}

func NewBudgetService(budgets BudgetStore, transactions TransactionStore) *BudgetService {
	return &BudgetService{budgets: budgets, transactions: transactions}
}

// CreateBudget validates and persists a budget. A second budget for the same
// (category, month, year) is a conflict, never a silent merge.
func (s *BudgetService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	id, err := s.budgets.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	b.ID = id
	return b, nil
}

// GetBudget loads a single budget without derived figures.
func (s *BudgetService) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return s.budgets.GetBudget(ctx, id)
}

// UpdateBudget rewrites the allotment. The period key stays fixed.
func (s *BudgetService) UpdateBudget(ctx context.Context, id int64, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	return s.budgets.UpdateBudget(ctx, id, amount)
}

// DeleteBudget removes a budget.
func (s *BudgetService) DeleteBudget(ctx context.Context, id int64) error {
	return s.budgets.DeleteBudget(ctx, id)
}

// BudgetWithView pairs a budget with its derived rollup.
type BudgetWithView struct {
	Budget core.Budget
	View   core.BudgetView
}

// BudgetView loads one budget and derives its spent/remaining/percentage
// from the transactions of its period.
func (s *BudgetService) BudgetView(ctx context.Context, id int64) (BudgetWithView, error) {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return BudgetWithView{}, err
	}

	transactions, err := s.transactions.FindTransactionsForPeriod(ctx, core.Period{Month: b.Month, Year: b.Year})
	if err != nil {
		return BudgetWithView{}, fmt.Errorf("load period transactions: %w", err)
	}

	return BudgetWithView{Budget: b, View: core.ComputeBudgetView(b, transactions)}, nil
}

// PeriodOverview is the full rollup of one budgeting period plus navigation.
type PeriodOverview struct {
	Period   core.Period
	Previous core.Period
	Next     core.Period
	Budgets  []BudgetWithView
	Overview core.Overview
}

// Overview loads every budget of a period, derives each view from a single
// transaction load, and sums the totals.
func (s *BudgetService) Overview(ctx context.Context, p core.Period) (PeriodOverview, error) {
	if err := p.Validate(); err != nil {
		return PeriodOverview{}, err
	}

	budgets, err := s.budgets.FindBudgetsForPeriod(ctx, p)
	if err != nil {
		return PeriodOverview{}, fmt.Errorf("load budgets: %w", err)
	}
	transactions, err := s.transactions.FindTransactionsForPeriod(ctx, p)
	if err != nil {
		return PeriodOverview{}, fmt.Errorf("load period transactions: %w", err)
	}

	views := make([]BudgetWithView, len(budgets))
	for i, b := range budgets {
		views[i] = BudgetWithView{Budget: b, View: core.ComputeBudgetView(b, transactions)}
	}

	return PeriodOverview{
		Period:   p,
		Previous: p.Previous(),
		Next:     p.Next(),
		Budgets:  views,
		Overview: core.ComputeOverview(budgets, transactions),
	}, nil
}
