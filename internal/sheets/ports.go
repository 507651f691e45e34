// Package sheets defines the outbound ports for mirroring transactions
// to an external spreadsheet ledger. Implementations live in subpackages.
package sheets

import (
	"context"

	"bilancio/internal/core"
)

// TransactionExporter mirrors transaction rows to an external ledger.
// Exports are best effort and must never block local writes.
type TransactionExporter interface {
	// AppendTransactions adds one ledger row per transaction.
	AppendTransactions(ctx context.Context, transactions []core.Transaction) error
	// RemoveTransactions blanks the ledger rows for the given transaction IDs.
	// IDs that are not present in the ledger are ignored.
	RemoveTransactions(ctx context.Context, ids []int64) error
}
