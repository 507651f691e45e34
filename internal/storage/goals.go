package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

const goalColumns = `id, name, target_cents, current_cents, target_date, status, category, notes`

func scanGoal(row interface{ Scan(...any) error }) (core.Goal, error) {
	var (
		g        core.Goal
		target   string
		status   string
		category string
	)
	if err := row.Scan(&g.ID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents,
		&target, &status, &category, &g.Notes); err != nil {
		return core.Goal{}, err
	}
	g.Status = core.GoalStatus(status)
	g.Category = core.GoalCategory(category)

	date, err := decodeDate(target)
	if err != nil {
		return core.Goal{}, err
	}
	g.TargetDate = date
	return g, nil
}

// CreateGoal inserts a goal and returns its id.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (name, target_cents, current_cents, target_date, status, category, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents, encodeDate(g.TargetDate),
		string(g.Status), string(g.Category), g.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetGoal looks a goal up by id.
func (r *SQLiteRepository) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, &core.NotFoundError{Entity: "goal", ID: id}
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal %d: %w", id, err)
	}
	return g, nil
}

// ListGoals returns every goal ordered by target date.
func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY target_date, id`)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// UpdateGoal persists the full state of an existing goal.
func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals
		SET name = ?, target_cents = ?, current_cents = ?, target_date = ?,
		    status = ?, category = ?, notes = ?, updated_at = datetime('now')
		WHERE id = ?`,
		g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents, encodeDate(g.TargetDate),
		string(g.Status), string(g.Category), g.Notes, g.ID)
	if err != nil {
		return fmt.Errorf("update goal %d: %w", g.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "goal", ID: g.ID}
	}
	return nil
}

// DeleteGoal removes a goal and, through the schema cascade, its derived
// classification row.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "goal", ID: id}
	}
	return nil
}

// ReplaceClassifications rewrites the derived risk snapshot for the given
// goals. The whole snapshot is replaced so goals that left a set disappear
// from it.
func (r *SQLiteRepository) ReplaceClassifications(ctx context.Context, entries map[int64]core.Classification, computedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin classification tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM goal_classifications`); err != nil {
		return fmt.Errorf("clear classifications: %w", err)
	}
	for goalID, c := range entries {
		if !c.AtRisk && !c.NearCompletion {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO goal_classifications (goal_id, at_risk, near_completion, computed_at)
			VALUES (?, ?, ?, ?)`,
			goalID, boolToInt(c.AtRisk), boolToInt(c.NearCompletion),
			computedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("insert classification for goal %d: %w", goalID, err)
		}
	}
	return tx.Commit()
}

// GetClassifications returns the current derived risk snapshot keyed by goal id.
func (r *SQLiteRepository) GetClassifications(ctx context.Context) (map[int64]core.Classification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT goal_id, at_risk, near_completion FROM goal_classifications`)
	if err != nil {
		return nil, fmt.Errorf("query classifications: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]core.Classification)
	for rows.Next() {
		var (
			goalID         int64
			atRisk, nearly int
		)
		if err := rows.Scan(&goalID, &atRisk, &nearly); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		result[goalID] = core.Classification{AtRisk: atRisk != 0, NearCompletion: nearly != 0}
	}
	return result, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
