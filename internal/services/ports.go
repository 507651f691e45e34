// Package services orchestrates the core engine against storage and the
// event bus. The engines in internal/core stay pure; everything with a side
// effect lives here.
package services

import (
	"context"
	"time"

	"bilancio/internal/core"

	"github.com/google/uuid"
)

// TransactionStore is the persistence surface the transaction service needs.
// *storage.SQLiteRepository satisfies it; tests use in-memory fakes.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	FindGroupSiblings(ctx context.Context, groupID uuid.UUID) ([]core.Transaction, error)
	FindTransactionsForPeriod(ctx context.Context, p core.Period) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) (bool, error)
	UpdateInstallmentTotal(ctx context.Context, id int64, total int) error
}

// GoalStore is the persistence surface for goals and their derived
// classification snapshot.
type GoalStore interface {
	CreateGoal(ctx context.Context, g core.Goal) (int64, error)
	GetGoal(ctx context.Context, id int64) (core.Goal, error)
	ListGoals(ctx context.Context) ([]core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) error
	DeleteGoal(ctx context.Context, id int64) error
	ReplaceClassifications(ctx context.Context, entries map[int64]core.Classification, computedAt time.Time) error
	GetClassifications(ctx context.Context) (map[int64]core.Classification, error)
}

// BudgetStore is the persistence surface for budgets.
type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.Budget) (int64, error)
	GetBudget(ctx context.Context, id int64) (core.Budget, error)
	FindBudgetsForPeriod(ctx context.Context, p core.Period) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, id int64, amount core.Money) error
	DeleteBudget(ctx context.Context, id int64) error
}

// EventPublisher publishes change events to the worker queues. Publishing is
// best-effort: a broker outage must never fail a request that already
// committed locally.
type EventPublisher interface {
	PublishGoalChanged(ctx context.Context, goalID int64, op string) error
	PublishTransactionChanged(ctx context.Context, ids []int64, op string) error
}
