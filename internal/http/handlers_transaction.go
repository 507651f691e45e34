package http

import (
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

type createTransactionRequest struct {
	Amount     string `json:"amount"`
	OccurredOn string `json:"occurred_on"`
	Kind       string `json:"kind"`
	CategoryID int64  `json:"category_id"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := parseAmountField("amount", req.Amount)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	occurredOn, err := parseDateField("occurred_on", req.OccurredOn)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	t, err := s.transactions.CreateTransaction(r.Context(), core.Transaction{
		Amount:     amount,
		OccurredOn: occurredOn,
		Kind:       core.TransactionKind(req.Kind),
		CategoryID: req.CategoryID,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	s.invalidateOverview(core.Period{Month: t.OccurredOn.Month(), Year: t.OccurredOn.Year()})
	writeJSON(w, http.StatusCreated, transactionOut(t))
}

type createInstallmentsRequest struct {
	TotalAmount string `json:"total_amount"`
	Count       int    `json:"count"`
	FirstDate   string `json:"first_date"`
	Kind        string `json:"kind"`
	CategoryID  int64  `json:"category_id"`
}

func (s *Server) handleCreateInstallmentPlan(w http.ResponseWriter, r *http.Request) {
	var req createInstallmentsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	total, err := parseAmountField("total_amount", req.TotalAmount)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	firstDate, err := parseDateField("first_date", req.FirstDate)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	transactions, err := s.transactions.CreateInstallmentPlan(r.Context(), services.InstallmentPlan{
		TotalAmount: total,
		Count:       req.Count,
		FirstDate:   firstDate,
		Kind:        core.TransactionKind(req.Kind),
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	for _, t := range transactions {
		s.invalidateOverview(core.Period{Month: t.OccurredOn.Month(), Year: t.OccurredOn.Year()})
	}
	writeJSON(w, http.StatusCreated, transactionsOut(transactions))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	transactions, err := s.transactions.ListForPeriod(r.Context(), p)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsOut(transactions))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	t, err := s.transactions.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionOut(t))
}

type deleteTransactionResponse struct {
	DeletedIDs []int64 `json:"deleted_ids"`
	Mode       string  `json:"mode"`
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	mode, err := core.ParseDeletionMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	ids, err := s.transactions.DeleteTransaction(r.Context(), id, mode)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	// An installment cascade can span many periods; drop everything.
	s.overviewCache.Purge()
	writeJSON(w, http.StatusOK, deleteTransactionResponse{DeletedIDs: ids, Mode: string(mode)})
}
