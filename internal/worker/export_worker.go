package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/sheets"
)

// TransactionLookup loads transactions referenced by export messages.
type TransactionLookup interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
}

// ExportWorker mirrors transaction changes to the external ledger.
// It reads the current row state from storage rather than trusting the
// message payload, so a replayed message exports the latest data.
type ExportWorker struct {
	storage  TransactionLookup
	exporter sheets.TransactionExporter
}

func NewExportWorker(storage TransactionLookup, exporter sheets.TransactionExporter) *ExportWorker {
	return &ExportWorker{storage: storage, exporter: exporter}
}

// HandleTransactionChanged processes a single transaction change message.
func (w *ExportWorker) HandleTransactionChanged(ctx context.Context, msg *amqp.TransactionChangedMessage) error {
	slog.InfoContext(ctx, "Processing transaction change",
		"op", msg.Op,
		"count", len(msg.TransactionIDs))

	switch msg.Op {
	case amqp.OpDeleted:
		if err := w.exporter.RemoveTransactions(ctx, msg.TransactionIDs); err != nil {
			return fmt.Errorf("remove from ledger: %w", err)
		}
		return nil
	case amqp.OpCreated, amqp.OpUpdated:
		return w.exportCurrent(ctx, msg.TransactionIDs)
	default:
		slog.WarnContext(ctx, "Ignoring transaction change with unknown op", "op", msg.Op)
		return nil
	}
}

func (w *ExportWorker) exportCurrent(ctx context.Context, ids []int64) error {
	transactions := make([]core.Transaction, 0, len(ids))
	for _, id := range ids {
		t, err := w.storage.GetTransaction(ctx, id)
		if err != nil {
			// A row deleted between publish and consume is not an error,
			// the matching delete message will follow.
			if core.IsNotFound(err) {
				slog.WarnContext(ctx, "Transaction vanished before export", "transaction_id", id)
				continue
			}
			return fmt.Errorf("load transaction %d: %w", id, err)
		}
		transactions = append(transactions, t)
	}

	if len(transactions) == 0 {
		return nil
	}
	if err := w.exporter.AppendTransactions(ctx, transactions); err != nil {
		return fmt.Errorf("append to ledger: %w", err)
	}
	return nil
}
