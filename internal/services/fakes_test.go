package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bilancio/internal/core"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the SQLite repository, safe for
// concurrent use so the serialization tests can hammer it.
type fakeStore struct {
	mu sync.Mutex

	nextID          int64
	transactions    map[int64]core.Transaction
	goals           map[int64]core.Goal
	budgets         map[int64]core.Budget
	classifications map[int64]core.Classification

	failCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transactions:    make(map[int64]core.Transaction),
		goals:           make(map[int64]core.Goal),
		budgets:         make(map[int64]core.Budget),
		classifications: make(map[int64]core.Classification),
	}
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return 0, fmt.Errorf("storage down")
	}
	f.nextID++
	t.ID = f.nextID
	f.transactions[t.ID] = t
	return t.ID, nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return t, nil
}

func (f *fakeStore) FindGroupSiblings(_ context.Context, groupID uuid.UUID) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Transaction
	for _, t := range f.transactions {
		if t.GroupID == groupID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) FindTransactionsForPeriod(_ context.Context, p core.Period) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Transaction
	for _, t := range f.transactions {
		if p.Contains(t.OccurredOn) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.transactions[id]; !ok {
		return false, nil
	}
	delete(f.transactions, id)
	return true, nil
}

func (f *fakeStore) UpdateInstallmentTotal(_ context.Context, id int64, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return &core.NotFoundError{Entity: "transaction", ID: id}
	}
	t.Total = total
	f.transactions[id] = t
	return nil
}

func (f *fakeStore) CreateGoal(_ context.Context, g core.Goal) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	g.ID = f.nextID
	f.goals[g.ID] = g
	return g.ID, nil
}

func (f *fakeStore) GetGoal(_ context.Context, id int64) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok {
		return core.Goal{}, &core.NotFoundError{Entity: "goal", ID: id}
	}
	return g, nil
}

func (f *fakeStore) ListGoals(_ context.Context) ([]core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Goal
	for _, g := range f.goals {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeStore) UpdateGoal(_ context.Context, g core.Goal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.goals[g.ID]; !ok {
		return &core.NotFoundError{Entity: "goal", ID: g.ID}
	}
	f.goals[g.ID] = g
	return nil
}

func (f *fakeStore) DeleteGoal(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.goals[id]; !ok {
		return &core.NotFoundError{Entity: "goal", ID: id}
	}
	delete(f.goals, id)
	delete(f.classifications, id)
	return nil
}

func (f *fakeStore) ReplaceClassifications(_ context.Context, entries map[int64]core.Classification, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classifications = make(map[int64]core.Classification)
	for id, c := range entries {
		if c.AtRisk || c.NearCompletion {
			f.classifications[id] = c
		}
	}
	return nil
}

func (f *fakeStore) GetClassifications(_ context.Context) (map[int64]core.Classification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]core.Classification, len(f.classifications))
	for id, c := range f.classifications {
		out[id] = c
	}
	return out, nil
}

func (f *fakeStore) CreateBudget(_ context.Context, b core.Budget) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.budgets {
		if existing.CategoryID == b.CategoryID && existing.Month == b.Month && existing.Year == b.Year {
			return 0, &core.ConflictError{Entity: "budget", Key: fmt.Sprintf("category %d in %04d-%02d", b.CategoryID, b.Year, b.Month)}
		}
	}
	f.nextID++
	b.ID = f.nextID
	f.budgets[b.ID] = b
	return b.ID, nil
}

func (f *fakeStore) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.budgets[id]
	if !ok {
		return core.Budget{}, &core.NotFoundError{Entity: "budget", ID: id}
	}
	return b, nil
}

func (f *fakeStore) FindBudgetsForPeriod(_ context.Context, p core.Period) ([]core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Budget
	for _, b := range f.budgets {
		if b.Month == p.Month && b.Year == p.Year {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateBudget(_ context.Context, id int64, amount core.Money) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.budgets[id]
	if !ok {
		return &core.NotFoundError{Entity: "budget", ID: id}
	}
	b.Amount = amount
	f.budgets[id] = b
	return nil
}

func (f *fakeStore) DeleteBudget(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.budgets[id]; !ok {
		return &core.NotFoundError{Entity: "budget", ID: id}
	}
	delete(f.budgets, id)
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu        sync.Mutex
	goalOps   []string
	goalIDs   []int64
	txOps     []string
	txBatches [][]int64
	failPubl  bool
}

func (f *fakePublisher) PublishGoalChanged(_ context.Context, goalID int64, op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPubl {
		return fmt.Errorf("broker down")
	}
	f.goalIDs = append(f.goalIDs, goalID)
	f.goalOps = append(f.goalOps, op)
	return nil
}

func (f *fakePublisher) PublishTransactionChanged(_ context.Context, ids []int64, op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPubl {
		return fmt.Errorf("broker down")
	}
	f.txBatches = append(f.txBatches, ids)
	f.txOps = append(f.txOps, op)
	return nil
}

func (f *fakePublisher) lastGoalOp() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.goalOps) == 0 {
		return ""
	}
	return f.goalOps[len(f.goalOps)-1]
}
