// Package worker contains the AMQP-driven background workers: goal
// classification refresh and the transaction ledger export.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
)

// ClassificationRefresher recomputes and persists goal classifications.
type ClassificationRefresher interface {
	Refresh(ctx context.Context, triggerGoalID int64) error
}

// ClassificationWorker reacts to goal change messages by refreshing the
// persisted risk and near-completion snapshot.
type ClassificationWorker struct {
	processor ClassificationRefresher
}

func NewClassificationWorker(processor ClassificationRefresher) *ClassificationWorker {
	return &ClassificationWorker{processor: processor}
}

// HandleGoalChanged processes a single goal change message from AMQP.
func (w *ClassificationWorker) HandleGoalChanged(ctx context.Context, msg *amqp.GoalChangedMessage) error {
	slog.InfoContext(ctx, "Processing goal change",
		"goal_id", msg.GoalID,
		"op", msg.Op)

	if err := w.processor.Refresh(ctx, msg.GoalID); err != nil {
		return fmt.Errorf("refresh classifications: %w", err)
	}
	return nil
}
