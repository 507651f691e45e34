package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
)

// GoalService owns goal orchestration. The lifecycle engine assumes a fresh,
// exclusively held snapshot per mutation; the per-goal lock here provides
// that serialization, so two concurrent contributions to the same goal never
// produce a lost update.
type GoalService struct {
	store  GoalStore
	events EventPublisher
	now    func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewGoalService(store GoalStore, events EventPublisher) *GoalService {
	return &GoalService{
		store:  store,
		events: events,
		now:    time.Now,
		locks:  make(map[int64]*sync.Mutex),
	}
}

func (s *GoalService) lockFor(goalID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[goalID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[goalID] = l
	}
	return l
}

// CreateGoal validates the input and persists a fresh active goal.
func (s *GoalService) CreateGoal(ctx context.Context, in core.GoalInput) (core.Goal, error) {
	g, err := core.NewGoal(in, s.now())
	if err != nil {
		return core.Goal{}, err
	}

	id, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	g.ID = id

	slog.InfoContext(ctx, "Goal created",
		"goal_id", id,
		"target_cents", g.TargetAmount.Cents,
		"target_date", g.TargetDate.Format("2006-01-02"))

	s.publishGoalChanged(ctx, id, amqp.OpCreated)
	return g, nil
}

// UpdateGoal applies an edit to an existing goal. Edits waive the
// future-target-date rule that creation enforces.
func (s *GoalService) UpdateGoal(ctx context.Context, id int64, in core.GoalInput) (core.Goal, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return core.Goal{}, err
	}

	edited, err := core.EditGoal(g, in)
	if err != nil {
		return core.Goal{}, err
	}

	if err := s.store.UpdateGoal(ctx, edited); err != nil {
		return core.Goal{}, fmt.Errorf("save goal edit: %w", err)
	}

	s.publishGoalChanged(ctx, id, amqp.OpUpdated)
	return edited, nil
}

// AddContribution applies a contribution under the goal's lock. Contribution
// and completion check are one step: callers only ever observe the final
// state.
func (s *GoalService) AddContribution(ctx context.Context, id int64, amount core.Money) (core.Goal, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return core.Goal{}, err
	}

	updated, err := core.AddContribution(g, amount)
	if err != nil {
		return core.Goal{}, err
	}

	if err := s.store.UpdateGoal(ctx, updated); err != nil {
		return core.Goal{}, fmt.Errorf("save contribution: %w", err)
	}

	op := amqp.OpContributed
	if updated.Status == core.GoalCompleted {
		op = amqp.OpCompleted
		slog.InfoContext(ctx, "Goal completed by contribution",
			"goal_id", id,
			"current_cents", updated.CurrentAmount.Cents,
			"target_cents", updated.TargetAmount.Cents)
	}

	s.publishGoalChanged(ctx, id, op)
	return updated, nil
}

// CompleteGoal marks an active goal completed regardless of the amount reached.
func (s *GoalService) CompleteGoal(ctx context.Context, id int64) (core.Goal, error) {
	return s.transition(ctx, id, core.MarkCompleted, amqp.OpCompleted)
}

// CancelGoal cancels an active goal.
func (s *GoalService) CancelGoal(ctx context.Context, id int64) (core.Goal, error) {
	return s.transition(ctx, id, core.CancelGoal, amqp.OpCancelled)
}

func (s *GoalService) transition(ctx context.Context, id int64, apply func(core.Goal) (core.Goal, error), op string) (core.Goal, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return core.Goal{}, err
	}

	updated, err := apply(g)
	if err != nil {
		return core.Goal{}, err
	}

	if err := s.store.UpdateGoal(ctx, updated); err != nil {
		return core.Goal{}, fmt.Errorf("save goal transition: %w", err)
	}

	s.publishGoalChanged(ctx, id, op)
	return updated, nil
}

// DeleteGoal removes a goal outright. The goal's lock entry goes with it so
// the lock map only grows with live goals; a racer still holding the old
// mutex just observes NotFound afterwards.
func (s *GoalService) DeleteGoal(ctx context.Context, id int64) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	if err := s.store.DeleteGoal(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()

	s.publishGoalChanged(ctx, id, amqp.OpDeleted)
	return nil
}

// GoalView is a goal with its derived figures, ready for presentation.
type GoalView struct {
	Goal           core.Goal
	Progress       int
	DaysRemaining  int
	AtRisk         bool
	NearCompletion bool
}

// GetGoal returns one goal with derived progress and classification.
func (s *GoalService) GetGoal(ctx context.Context, id int64) (GoalView, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return GoalView{}, err
	}
	return s.view(g), nil
}

// ListGoals returns every goal with derived figures.
func (s *GoalService) ListGoals(ctx context.Context) ([]GoalView, error) {
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	views := make([]GoalView, len(goals))
	for i, g := range goals {
		views[i] = s.view(g)
	}
	return views, nil
}

// GoalSummary aggregates the whole goal portfolio for the summary endpoint.
type GoalSummary struct {
	Total          int
	Active         int
	Completed      int
	Cancelled      int
	TotalTarget    core.Money
	TotalSaved     core.Money
	AtRisk         int
	NearCompletion int
}

// Summary rolls up counts and amounts across every goal. Risk counters only
// cover active goals since terminal goals never classify. The counters come
// from the snapshot the classification worker maintains; goals the snapshot
// does not cover yet are classified on the spot.
func (s *GoalService) Summary(ctx context.Context) (GoalSummary, error) {
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return GoalSummary{}, fmt.Errorf("list goals: %w", err)
	}
	snapshot, err := s.store.GetClassifications(ctx)
	if err != nil {
		return GoalSummary{}, fmt.Errorf("load classification snapshot: %w", err)
	}

	today := s.now()
	var sum GoalSummary
	sum.Total = len(goals)
	for _, g := range goals {
		switch g.Status {
		case core.GoalActive:
			sum.Active++
		case core.GoalCompleted:
			sum.Completed++
		case core.GoalCancelled:
			sum.Cancelled++
		}
		sum.TotalTarget = sum.TotalTarget.Add(g.TargetAmount)
		sum.TotalSaved = sum.TotalSaved.Add(g.CurrentAmount)

		c, ok := snapshot[g.ID]
		if !ok {
			c = core.Classify(g, today)
		}
		if c.AtRisk {
			sum.AtRisk++
		}
		if c.NearCompletion {
			sum.NearCompletion++
		}
	}
	return sum, nil
}

func (s *GoalService) view(g core.Goal) GoalView {
	today := s.now()
	c := core.Classify(g, today)
	return GoalView{
		Goal:           g,
		Progress:       core.Progress(g),
		DaysRemaining:  core.DaysRemaining(g.TargetDate, today),
		AtRisk:         c.AtRisk,
		NearCompletion: c.NearCompletion,
	}
}

func (s *GoalService) publishGoalChanged(ctx context.Context, id int64, op string) {
	if s.events == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping goal message")
		return
	}
	if err := s.events.PublishGoalChanged(ctx, id, op); err != nil {
		// Don't fail the request - the local write already succeeded
		slog.ErrorContext(ctx, "Failed to publish goal message",
			"goal_id", id, "op", op, "error", err)
	}
}
