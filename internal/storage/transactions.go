package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/core"

	"github.com/google/uuid"
)

const transactionColumns = `id, amount_cents, occurred_on, kind, category_id, group_id, installment_index, installment_total`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t        core.Transaction
		occurred string
		kind     string
		group    string
	)
	if err := row.Scan(&t.ID, &t.Amount.Cents, &occurred, &kind, &t.CategoryID, &group, &t.Index, &t.Total); err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.TransactionKind(kind)

	date, err := decodeDate(occurred)
	if err != nil {
		return core.Transaction{}, err
	}
	t.OccurredOn = date

	groupID, err := decodeGroupID(group)
	if err != nil {
		return core.Transaction{}, err
	}
	t.GroupID = groupID
	return t, nil
}

// CreateTransaction inserts one transaction and returns its id.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (amount_cents, occurred_on, kind, category_id, group_id, installment_index, installment_total)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Amount.Cents, encodeDate(t.OccurredOn), string(t.Kind), t.CategoryID,
		encodeGroupID(t.GroupID), t.Index, t.Total)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved",
		"id", id,
		"amount_cents", t.Amount.Cents,
		"kind", string(t.Kind),
		"occurred_on", encodeDate(t.OccurredOn))

	return id, nil
}

// GetTransaction looks a transaction up by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// FindGroupSiblings returns every member of an installment group ordered by
// installment index.
func (r *SQLiteRepository) FindGroupSiblings(ctx context.Context, groupID uuid.UUID) ([]core.Transaction, error) {
	if groupID == uuid.Nil {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE group_id = ? ORDER BY installment_index, id`,
		groupID.String())
	if err != nil {
		return nil, fmt.Errorf("query group siblings: %w", err)
	}
	defer rows.Close()

	var siblings []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group sibling: %w", err)
		}
		siblings = append(siblings, t)
	}
	return siblings, rows.Err()
}

// FindTransactionsForPeriod returns every transaction of a (month, year)
// window ordered by date.
func (r *SQLiteRepository) FindTransactionsForPeriod(ctx context.Context, p core.Period) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE substr(occurred_on, 1, 7) = ? ORDER BY occurred_on, id`,
		p.String())
	if err != nil {
		return nil, fmt.Errorf("query transactions for %s: %w", p, err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// DeleteTransaction removes one transaction. Deleting an id that is already
// gone is not an error; cascades rely on that idempotency to survive partial
// reruns.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateInstallmentTotal rewrites the series length on a surviving group
// member after a single-mode deletion.
func (r *SQLiteRepository) UpdateInstallmentTotal(ctx context.Context, id int64, total int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET installment_total = ? WHERE id = ?`, total, id)
	if err != nil {
		return fmt.Errorf("update installment total for %d: %w", id, err)
	}
	return nil
}
