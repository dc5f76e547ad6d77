package mocks

import (
	"context"

	"github.com/Nzyazin/ledger/internal/core/models"
	"github.com/stretchr/testify/mock"
)

type LedgerUsecase struct {
	mock.Mock
}

func (m *LedgerUsecase) VerifyConnectivity(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tables, _ := args.Get(0).([]string)
	return tables, args.Error(1)
}

func (m *LedgerUsecase) RecordTransactions(ctx context.Context, txs []models.Transaction) error {
	args := m.Called(ctx, txs)
	return args.Error(0)
}

func (m *LedgerUsecase) ResetLedger(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *LedgerUsecase) GetBalance(ctx context.Context, walletAddress string) (int64, error) {
	args := m.Called(ctx, walletAddress)
	return args.Get(0).(int64), args.Error(1)
}
