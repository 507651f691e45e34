package http

import (
	"net/http"

	"bilancio/internal/core"
)

type budgetRequest struct {
	Amount     string `json:"amount"`
	CategoryID int64  `json:"category_id"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := parseAmountField("amount", req.Amount)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	b, err := s.budgets.CreateBudget(r.Context(), core.Budget{
		Amount:     amount,
		CategoryID: req.CategoryID,
		Month:      req.Month,
		Year:       req.Year,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	s.invalidateOverview(core.Period{Month: b.Month, Year: b.Year})
	writeJSON(w, http.StatusCreated, budgetOut(b))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	overview, err := s.budgets.Overview(r.Context(), p)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	out := make([]budgetViewPayload, len(overview.Budgets))
	for i, b := range overview.Budgets {
		out[i] = budgetViewOut(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBudgetOverview(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	key := p.String()
	if cached, ok := s.overviewCache.Get(key); ok {
		writeJSON(w, http.StatusOK, overviewOut(cached))
		return
	}

	overview, err := s.budgets.Overview(r.Context(), p)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	s.overviewCache.Set(key, overview)
	writeJSON(w, http.StatusOK, overviewOut(overview))
}

func (s *Server) handleBudgetView(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	view, err := s.budgets.BudgetView(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetViewOut(view))
}

type updateBudgetRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateBudgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := parseAmountField("amount", req.Amount)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	if err := s.budgets.UpdateBudget(r.Context(), id, amount); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	b, err := s.budgets.GetBudget(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	s.invalidateOverview(core.Period{Month: b.Month, Year: b.Year})
	writeJSON(w, http.StatusOK, budgetOut(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	// Look the budget up first so the right overview entry can be dropped.
	b, err := s.budgets.GetBudget(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	if err := s.budgets.DeleteBudget(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	s.invalidateOverview(core.Period{Month: b.Month, Year: b.Year})
	w.WriteHeader(http.StatusNoContent)
}
