package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"

	"github.com/google/uuid"
)

const (
	minInstallments = 2
	maxInstallments = 120
)

// TransactionService handles bookkeeping entries: creation, installment plan
// booking, and the three-mode cascading deletion.
type TransactionService struct {
	store  TransactionStore
	events EventPublisher
}

func NewTransactionService(store TransactionStore, events EventPublisher) *TransactionService {
	return &TransactionService{store: store, events: events}
}

// CreateTransaction validates and saves a standalone transaction.
func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id

	s.publishTransactionChanged(ctx, []int64{id}, amqp.OpCreated)
	return t, nil
}

// InstallmentPlan is the input for booking one purchase split into equal
// monthly payments.
type InstallmentPlan struct {
	TotalAmount core.Money
	Count       int
	FirstDate   core.Date
	Kind        core.TransactionKind
	CategoryID  int64
}

// CreateInstallmentPlan books an installment series: Count transactions on a
// monthly cadence sharing a fresh group id. The total is split into equal
// cent amounts; the first installment absorbs the division remainder so the
// series sums exactly to the total.
func (s *TransactionService) CreateInstallmentPlan(ctx context.Context, plan InstallmentPlan) ([]core.Transaction, error) {
	if plan.Count < minInstallments || plan.Count > maxInstallments {
		return nil, &core.ValidationError{Field: "count", Reason: fmt.Sprintf("must be between %d and %d", minInstallments, maxInstallments)}
	}
	if err := plan.TotalAmount.Validate(); err != nil {
		return nil, err
	}
	if plan.TotalAmount.Cents < int64(plan.Count) {
		return nil, &core.ValidationError{Field: "total_amount", Reason: "too small to split into installments"}
	}
	if err := plan.FirstDate.Validate(); err != nil {
		return nil, err
	}
	if err := plan.Kind.Validate(); err != nil {
		return nil, err
	}

	groupID := uuid.New()
	base := plan.TotalAmount.Cents / int64(plan.Count)
	remainder := plan.TotalAmount.Cents % int64(plan.Count)

	transactions := make([]core.Transaction, 0, plan.Count)
	ids := make([]int64, 0, plan.Count)
	for i := 0; i < plan.Count; i++ {
		amount := base
		if i == 0 {
			amount += remainder
		}
		t := core.Transaction{
			Amount:     core.Money{Cents: amount},
			OccurredOn: installmentDate(plan.FirstDate, i),
			Kind:       plan.Kind,
			CategoryID: plan.CategoryID,
			GroupID:    groupID,
			Index:      i + 1,
			Total:      plan.Count,
		}
		id, err := s.store.CreateTransaction(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("save installment %d/%d: %w", i+1, plan.Count, err)
		}
		t.ID = id
		transactions = append(transactions, t)
		ids = append(ids, id)
	}

	slog.InfoContext(ctx, "Installment plan booked",
		"group_id", groupID.String(),
		"count", plan.Count,
		"total_cents", plan.TotalAmount.Cents)

	s.publishTransactionChanged(ctx, ids, amqp.OpCreated)
	return transactions, nil
}

// DeleteTransaction resolves and executes a delete request. The engine
// computes the blast radius; the cascade here deletes per id and tolerates
// ids that are already gone, so a rerun after a partial failure finishes the
// job instead of aborting.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64, mode core.DeletionMode) ([]int64, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	var siblings []core.Transaction
	if t.InGroup() {
		siblings, err = s.store.FindGroupSiblings(ctx, t.GroupID)
		if err != nil {
			return nil, fmt.Errorf("load group siblings: %w", err)
		}
	}

	ids, adjustments, err := core.ResolveDeletionSet(t, siblings, mode)
	if err != nil {
		return nil, err
	}

	for _, deleteID := range ids {
		deleted, err := s.store.DeleteTransaction(ctx, deleteID)
		if err != nil {
			return nil, fmt.Errorf("delete transaction %d: %w", deleteID, err)
		}
		if !deleted {
			slog.WarnContext(ctx, "Cascade member already deleted, continuing",
				"transaction_id", deleteID,
				"deletion_mode", string(mode))
		}
	}

	for _, adj := range adjustments {
		if err := s.store.UpdateInstallmentTotal(ctx, adj.TransactionID, adj.NewTotal); err != nil {
			return nil, fmt.Errorf("adjust installment total: %w", err)
		}
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"transaction_id", id,
		"deletion_mode", string(mode),
		"cascade_size", len(ids))

	s.publishTransactionChanged(ctx, ids, amqp.OpDeleted)
	return ids, nil
}

// GetTransaction loads a single transaction.
func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// ListForPeriod returns the transactions of a (month, year) window.
func (s *TransactionService) ListForPeriod(ctx context.Context, p core.Period) ([]core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.store.FindTransactionsForPeriod(ctx, p)
}

func (s *TransactionService) publishTransactionChanged(ctx context.Context, ids []int64, op string) {
	if s.events == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping transaction message")
		return
	}
	if err := s.events.PublishTransactionChanged(ctx, ids, op); err != nil {
		// Don't fail the request - the local write already succeeded
		slog.ErrorContext(ctx, "Failed to publish transaction message",
			"transaction_ids", ids, "op", op, "error", err)
	}
}

// installmentDate places installment i (0-based) on the monthly cadence,
// clamping the day when the target month is shorter than the start day.
func installmentDate(first core.Date, i int) core.Date {
	p := core.Period{Month: first.Month(), Year: first.Year()}.AddMonths(i)
	day := first.Day()
	if last := lastDayOfMonth(p); day > last {
		day = last
	}
	return core.NewDate(p.Year, p.Month, day)
}

func lastDayOfMonth(p core.Period) int {
	next := p.Next()
	return core.NewDate(next.Year, next.Month, 1).AddDate(0, 0, -1).Day()
}
