package repository

import (
	"context"

	"github.com/Nzyazin/ledger/internal/core/models"
)

// LedgerRepository is the append-only transaction store.
type LedgerRepository interface {
	// InsertTransactions commits all records in a single write or none of them.
	InsertTransactions(ctx context.Context, txs []models.Transaction) error
	DeleteAllTransactions(ctx context.Context) error
	// ListByWallet returns every record for the address in natural order; unknown wallets yield an empty slice.
	ListByWallet(ctx context.Context, walletAddress string) ([]models.TransactionRecord, error)
	ListTables(ctx context.Context) ([]string, error)
}
