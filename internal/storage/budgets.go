package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bilancio/internal/core"
)

const budgetColumns = `id, amount_cents, category_id, month, year`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var b core.Budget
	if err := row.Scan(&b.ID, &b.Amount.Cents, &b.CategoryID, &b.Month, &b.Year); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// CreateBudget inserts a budget. The (category_id, month, year) unique index
// backs the domain conflict rule; a violation surfaces as ConflictError.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (amount_cents, category_id, month, year)
		VALUES (?, ?, ?, ?)`,
		b.Amount.Cents, b.CategoryID, b.Month, b.Year)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &core.ConflictError{
				Entity: "budget",
				Key:    fmt.Sprintf("category %d in %04d-%02d", b.CategoryID, b.Year, b.Month),
			}
		}
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetBudget looks a budget up by id.
func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, &core.NotFoundError{Entity: "budget", ID: id}
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

// FindBudgetsForPeriod returns every budget of a (month, year) window,
// general budget first.
func (r *SQLiteRepository) FindBudgetsForPeriod(ctx context.Context, p core.Period) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE month = ? AND year = ? ORDER BY category_id, id`,
		p.Month, p.Year)
	if err != nil {
		return nil, fmt.Errorf("query budgets for %s: %w", p, err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// UpdateBudget rewrites the allotment of an existing budget. The period key
// is immutable; moving a budget is a delete plus create.
func (r *SQLiteRepository) UpdateBudget(ctx context.Context, id int64, amount core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET amount_cents = ? WHERE id = ?`, amount.Cents, id)
	if err != nil {
		return fmt.Errorf("update budget %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "budget", ID: id}
	}
	return nil
}

// DeleteBudget removes a budget.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "budget", ID: id}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
