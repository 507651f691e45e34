package http

import (
	"context"
	"net/http"

	"bilancio/internal/core"
)

type goalRequest struct {
	Name          string `json:"name"`
	TargetAmount  string `json:"target_amount"`
	CurrentAmount string `json:"current_amount"`
	TargetDate    string `json:"target_date"`
	Category      string `json:"category"`
	Notes         string `json:"notes"`
}

func (r goalRequest) toInput() (core.GoalInput, error) {
	target, err := parseAmountField("target_amount", r.TargetAmount)
	if err != nil {
		return core.GoalInput{}, err
	}

	var current core.Money
	if r.CurrentAmount != "" {
		current, err = parseAmountField("current_amount", r.CurrentAmount)
		if err != nil {
			return core.GoalInput{}, err
		}
	}

	targetDate, err := parseDateField("target_date", r.TargetDate)
	if err != nil {
		return core.GoalInput{}, err
	}

	return core.GoalInput{
		Name:          r.Name,
		TargetAmount:  target,
		CurrentAmount: current,
		TargetDate:    targetDate,
		Category:      core.GoalCategory(r.Category),
		Notes:         r.Notes,
	}, nil
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := req.toInput()
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	g, err := s.goals.CreateGoal(r.Context(), in)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	view, err := s.goals.GetGoal(r.Context(), g.ID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, goalOut(view))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	views, err := s.goals.ListGoals(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	out := make([]goalPayload, len(views))
	for i, v := range views {
		out[i] = goalOut(v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGoalSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.goals.Summary(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, goalSummaryPayload{
		Total:          sum.Total,
		Active:         sum.Active,
		Completed:      sum.Completed,
		Cancelled:      sum.Cancelled,
		TotalTarget:    moneyOut(sum.TotalTarget),
		TotalSaved:     moneyOut(sum.TotalSaved),
		AtRisk:         sum.AtRisk,
		NearCompletion: sum.NearCompletion,
	})
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	view, err := s.goals.GetGoal(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, goalOut(view))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := req.toInput()
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	if _, err := s.goals.UpdateGoal(r.Context(), id, in); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	view, err := s.goals.GetGoal(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, goalOut(view))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.goals.DeleteGoal(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contributionRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req contributionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := parseAmountField("amount", req.Amount)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	if _, err := s.goals.AddContribution(r.Context(), id, amount); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	view, err := s.goals.GetGoal(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, goalOut(view))
}

func (s *Server) handleCompleteGoal(w http.ResponseWriter, r *http.Request) {
	s.handleGoalTransition(w, r, s.goals.CompleteGoal)
}

func (s *Server) handleCancelGoal(w http.ResponseWriter, r *http.Request) {
	s.handleGoalTransition(w, r, s.goals.CancelGoal)
}

func (s *Server) handleGoalTransition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int64) (core.Goal, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := apply(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	view, err := s.goals.GetGoal(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, goalOut(view))
}
