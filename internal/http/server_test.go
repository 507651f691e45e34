package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"

	"github.com/google/uuid"
)

// memStore is an in-memory implementation of the three store ports, enough
// to run the full API through httptest without SQLite.
type memStore struct {
	mu sync.Mutex

	nextID       int64
	transactions map[int64]core.Transaction
	goals        map[int64]core.Goal
	budgets      map[int64]core.Budget
}

func newMemStore() *memStore {
	return &memStore{
		transactions: make(map[int64]core.Transaction),
		goals:        make(map[int64]core.Goal),
		budgets:      make(map[int64]core.Budget),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateTransaction(_ context.Context, t core.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	m.transactions[t.ID] = t
	return t.ID, nil
}

func (m *memStore) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return t, nil
}

func (m *memStore) FindGroupSiblings(_ context.Context, groupID uuid.UUID) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Transaction
	for _, t := range m.transactions {
		if t.GroupID == groupID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *memStore) FindTransactionsForPeriod(_ context.Context, p core.Period) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Transaction
	for _, t := range m.transactions {
		if p.Contains(t.OccurredOn) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeleteTransaction(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[id]; !ok {
		return false, nil
	}
	delete(m.transactions, id)
	return true, nil
}

func (m *memStore) UpdateInstallmentTotal(_ context.Context, id int64, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return &core.NotFoundError{Entity: "transaction", ID: id}
	}
	t.Total = total
	m.transactions[id] = t
	return nil
}

func (m *memStore) CreateGoal(_ context.Context, g core.Goal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = m.id()
	m.goals[g.ID] = g
	return g.ID, nil
}

func (m *memStore) GetGoal(_ context.Context, id int64) (core.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok {
		return core.Goal{}, &core.NotFoundError{Entity: "goal", ID: id}
	}
	return g, nil
}

func (m *memStore) ListGoals(_ context.Context) ([]core.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Goal
	for _, g := range m.goals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateGoal(_ context.Context, g core.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[g.ID]; !ok {
		return &core.NotFoundError{Entity: "goal", ID: g.ID}
	}
	m.goals[g.ID] = g
	return nil
}

func (m *memStore) DeleteGoal(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[id]; !ok {
		return &core.NotFoundError{Entity: "goal", ID: id}
	}
	delete(m.goals, id)
	return nil
}

func (m *memStore) ReplaceClassifications(_ context.Context, _ map[int64]core.Classification, _ time.Time) error {
	return nil
}

func (m *memStore) GetClassifications(_ context.Context) (map[int64]core.Classification, error) {
	return map[int64]core.Classification{}, nil
}

func (m *memStore) CreateBudget(_ context.Context, b core.Budget) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.budgets {
		if existing.CategoryID == b.CategoryID && existing.Month == b.Month && existing.Year == b.Year {
			return 0, &core.ConflictError{Entity: "budget", Key: "period"}
		}
	}
	b.ID = m.id()
	m.budgets[b.ID] = b
	return b.ID, nil
}

func (m *memStore) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[id]
	if !ok {
		return core.Budget{}, &core.NotFoundError{Entity: "budget", ID: id}
	}
	return b, nil
}

func (m *memStore) FindBudgetsForPeriod(_ context.Context, p core.Period) ([]core.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Budget
	for _, b := range m.budgets {
		if b.Month == p.Month && b.Year == p.Year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateBudget(_ context.Context, id int64, amount core.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[id]
	if !ok {
		return &core.NotFoundError{Entity: "budget", ID: id}
	}
	b.Amount = amount
	m.budgets[id] = b
	return nil
}

func (m *memStore) DeleteBudget(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.budgets[id]; !ok {
		return &core.NotFoundError{Entity: "budget", ID: id}
	}
	delete(m.budgets, id)
	return nil
}

func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	store := newMemStore()
	s := NewServer("127.0.0.1:0", 0,
		services.NewTransactionService(store, nil),
		services.NewGoalService(store, nil),
		services.NewBudgetService(store, store))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, store
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/transactions", createTransactionRequest{
		Amount:     "42,50",
		OccurredOn: "2026-03-10",
		Kind:       "expense",
		CategoryID: 3,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	got := decodeBody[transactionPayload](t, rec)
	if got.Amount.Cents != 4250 || got.Amount.Decimal != "42.50" {
		t.Errorf("amount = %+v, want 4250 cents", got.Amount)
	}
	if got.GroupID != "" {
		t.Errorf("standalone transaction should carry no group id, got %q", got.GroupID)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []struct {
		name string
		req  createTransactionRequest
		want int
	}{
		{"bad amount", createTransactionRequest{Amount: "abc", OccurredOn: "2026-03-10", Kind: "expense"}, http.StatusUnprocessableEntity},
		{"zero amount", createTransactionRequest{Amount: "0", OccurredOn: "2026-03-10", Kind: "expense"}, http.StatusUnprocessableEntity},
		{"bad date", createTransactionRequest{Amount: "10", OccurredOn: "10/03/2026", Kind: "expense"}, http.StatusUnprocessableEntity},
		{"bad kind", createTransactionRequest{Amount: "10", OccurredOn: "2026-03-10", Kind: "transfer"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/transactions", tc.req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestInstallmentPlanAndCascade(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/transactions/installments", createInstallmentsRequest{
		TotalAmount: "600",
		Count:       6,
		FirstDate:   "2026-01-15",
		Kind:        "expense",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	plan := decodeBody[[]transactionPayload](t, rec)
	if len(plan) != 6 {
		t.Fatalf("booked %d installments, want 6", len(plan))
	}
	if plan[0].InstallmentIndex != 1 || plan[0].InstallmentTotal != 6 {
		t.Errorf("first installment = %d/%d, want 1/6", plan[0].InstallmentIndex, plan[0].InstallmentTotal)
	}

	// Delete from the third onward.
	third := plan[2].ID
	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/transactions/%d?mode=future", third), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	del := decodeBody[deleteTransactionResponse](t, rec)
	if len(del.DeletedIDs) != 4 {
		t.Errorf("cascade deleted %d rows, want 4", len(del.DeletedIDs))
	}

	// The retained prefix survives with its original numbering.
	rec = do(t, s, http.MethodGet, fmt.Sprintf("/transactions/%d", plan[1].ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	kept := decodeBody[transactionPayload](t, rec)
	if kept.InstallmentIndex != 2 || kept.InstallmentTotal != 6 {
		t.Errorf("survivor = %d/%d, want 2/6", kept.InstallmentIndex, kept.InstallmentTotal)
	}
}

func TestDeleteTransactionInvalidMode(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/transactions", createTransactionRequest{
		Amount: "10", OccurredOn: "2026-03-10", Kind: "expense",
	})
	created := decodeBody[transactionPayload](t, rec)

	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/transactions/%d?mode=everything", created.ID), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestDeleteTransactionNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodDelete, "/transactions/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGoalLifecycleOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)

	target := time.Now().AddDate(0, 6, 0).Format(dateLayout)
	rec := do(t, s, http.MethodPost, "/goals", goalRequest{
		Name:         "Vacanze",
		TargetAmount: "1000",
		TargetDate:   target,
		Category:     "travel",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	goal := decodeBody[goalPayload](t, rec)
	if goal.Status != "active" || goal.Progress != 0 {
		t.Errorf("new goal = %s/%d%%, want active/0%%", goal.Status, goal.Progress)
	}

	rec = do(t, s, http.MethodPost, fmt.Sprintf("/goals/%d/contributions", goal.ID), contributionRequest{Amount: "950"})
	if rec.Code != http.StatusOK {
		t.Fatalf("contribution status = %d, body %s", rec.Code, rec.Body.String())
	}
	after := decodeBody[goalPayload](t, rec)
	if after.Progress != 95 || !after.NearCompletion {
		t.Errorf("after contribution: progress=%d near=%v, want 95/true", after.Progress, after.NearCompletion)
	}

	// Completion is reached by the final contribution, not an explicit call.
	rec = do(t, s, http.MethodPost, fmt.Sprintf("/goals/%d/contributions", goal.ID), contributionRequest{Amount: "50"})
	done := decodeBody[goalPayload](t, rec)
	if done.Status != "completed" {
		t.Fatalf("status after full funding = %s, want completed", done.Status)
	}

	// Terminal goals refuse further contributions.
	rec = do(t, s, http.MethodPost, fmt.Sprintf("/goals/%d/contributions", goal.ID), contributionRequest{Amount: "1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("contribution to completed goal = %d, want 409", rec.Code)
	}
}

func TestGoalSummary(t *testing.T) {
	s, _ := newTestServer(t)

	target := time.Now().AddDate(1, 0, 0).Format(dateLayout)
	for _, name := range []string{"Fondo emergenza", "Auto nuova"} {
		rec := do(t, s, http.MethodPost, "/goals", goalRequest{
			Name: name, TargetAmount: "500", TargetDate: target,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d", rec.Code)
		}
	}

	rec := do(t, s, http.MethodGet, "/goals/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	sum := decodeBody[goalSummaryPayload](t, rec)
	if sum.Total != 2 || sum.Active != 2 {
		t.Errorf("summary = %+v, want total=2 active=2", sum)
	}
	if sum.TotalTarget.Cents != 100000 {
		t.Errorf("total target = %d cents, want 100000", sum.TotalTarget.Cents)
	}
}

func TestGoalPastTargetDateRejected(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/goals", goalRequest{
		Name: "Retroattivo", TargetAmount: "100", TargetDate: "2020-01-01",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestBudgetLifecycleAndOverview(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/budgets", budgetRequest{Amount: "500", Month: 3, Year: 2026})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	general := decodeBody[budgetPayload](t, rec)

	rec = do(t, s, http.MethodPost, "/budgets", budgetRequest{Amount: "300", CategoryID: 7, Month: 3, Year: 2026})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	// Duplicate period key conflicts.
	rec = do(t, s, http.MethodPost, "/budgets", budgetRequest{Amount: "100", Month: 3, Year: 2026})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rec.Code)
	}

	// Spend against category 7.
	rec = do(t, s, http.MethodPost, "/transactions", createTransactionRequest{
		Amount: "210", OccurredOn: "2026-03-05", Kind: "expense", CategoryID: 7,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("transaction status = %d", rec.Code)
	}
	// Income never counts against budgets.
	rec = do(t, s, http.MethodPost, "/transactions", createTransactionRequest{
		Amount: "1000", OccurredOn: "2026-03-06", Kind: "income",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("income status = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/budgets/overview?month=3&year=2026", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview status = %d, body %s", rec.Code, rec.Body.String())
	}
	ov := decodeBody[overviewPayload](t, rec)
	if ov.Period != "2026-03" || ov.Previous != "2026-02" || ov.Next != "2026-04" {
		t.Errorf("navigation = %s/%s/%s", ov.Previous, ov.Period, ov.Next)
	}
	// General counts the 210; category budget counts it again.
	if ov.TotalBudget.Cents != 80000 || ov.TotalSpent.Cents != 42000 {
		t.Errorf("totals = %d/%d, want 80000/42000", ov.TotalBudget.Cents, ov.TotalSpent.Cents)
	}

	rec = do(t, s, http.MethodGet, fmt.Sprintf("/budgets/%d/view", general.ID), nil)
	view := decodeBody[budgetViewPayload](t, rec)
	if view.Spent.Cents != 21000 || view.Remaining.Cents != 29000 || view.Percentage != 42 {
		t.Errorf("view = %+v, want spent 21000, remaining 29000, 42%%", view)
	}
}

func TestOverviewCacheInvalidatedOnBudgetChange(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/budgets", budgetRequest{Amount: "500", Month: 4, Year: 2026})
	b := decodeBody[budgetPayload](t, rec)

	rec = do(t, s, http.MethodGet, "/budgets/overview?month=4&year=2026", nil)
	first := decodeBody[overviewPayload](t, rec)
	if first.TotalBudget.Cents != 50000 {
		t.Fatalf("total = %d, want 50000", first.TotalBudget.Cents)
	}

	rec = do(t, s, http.MethodPut, fmt.Sprintf("/budgets/%d", b.ID), updateBudgetRequest{Amount: "750"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/budgets/overview?month=4&year=2026", nil)
	second := decodeBody[overviewPayload](t, rec)
	if second.TotalBudget.Cents != 75000 {
		t.Errorf("total after update = %d, want 75000 (stale cache?)", second.TotalBudget.Cents)
	}
}

func TestOverviewBadPeriod(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/budgets/overview?month=13&year=2026", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}
