package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
)

// ClassificationProcessor recomputes the derived at-risk and near-completion
// sets over the whole goal collection. It runs after every goal mutation
// (driven by the worker's queue) and once at worker startup, so the snapshot
// never lags a mutation by more than one message.
type ClassificationProcessor struct {
	store GoalStore
	now   func() time.Time
}

func NewClassificationProcessor(store GoalStore) *ClassificationProcessor {
	return &ClassificationProcessor{store: store, now: time.Now}
}

// Refresh reclassifies every goal and replaces the stored snapshot. The
// triggering goal id is only used for logging; reclassifying the full set
// keeps the snapshot correct when a day boundary moves goals into the risk
// window without any mutation to those goals.
func (p *ClassificationProcessor) Refresh(ctx context.Context, triggerGoalID int64) error {
	goals, err := p.store.ListGoals(ctx)
	if err != nil {
		return fmt.Errorf("list goals for classification: %w", err)
	}

	today := p.now()
	entries := make(map[int64]core.Classification, len(goals))
	atRisk, nearCompletion := 0, 0
	for _, g := range goals {
		c := core.Classify(g, today)
		entries[g.ID] = c
		if c.AtRisk {
			atRisk++
		}
		if c.NearCompletion {
			nearCompletion++
		}
	}

	if err := p.store.ReplaceClassifications(ctx, entries, today); err != nil {
		return fmt.Errorf("store classification snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Goal classification refreshed",
		"trigger_goal_id", triggerGoalID,
		"goals", len(goals),
		"at_risk", atRisk,
		"near_completion", nearCompletion)

	return nil
}
