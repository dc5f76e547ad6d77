package mocks

import (
	"context"

	"github.com/Nzyazin/ledger/internal/core/models"
	"github.com/stretchr/testify/mock"
)

type LedgerRepository struct {
	mock.Mock
}

func (m *LedgerRepository) InsertTransactions(ctx context.Context, txs []models.Transaction) error {
	args := m.Called(ctx, txs)
	return args.Error(0)
}

func (m *LedgerRepository) DeleteAllTransactions(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *LedgerRepository) ListByWallet(ctx context.Context, walletAddress string) ([]models.TransactionRecord, error) {
	args := m.Called(ctx, walletAddress)
	records, _ := args.Get(0).([]models.TransactionRecord)
	return records, args.Error(1)
}

func (m *LedgerRepository) ListTables(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tables, _ := args.Get(0).([]string)
	return tables, args.Error(1)
}
