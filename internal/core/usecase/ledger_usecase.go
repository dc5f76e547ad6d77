package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Nzyazin/ledger/internal/core/balance"
	"github.com/Nzyazin/ledger/internal/core/logger"
	"github.com/Nzyazin/ledger/internal/core/models"
	"github.com/Nzyazin/ledger/internal/core/repository"
	"github.com/Nzyazin/ledger/internal/metrics"
)

// LedgerUsecase is the façade the transport layer calls into.
// Connection lifetime is process lifetime: the repository it wraps shares one pool.
type LedgerUsecase interface {
	VerifyConnectivity(ctx context.Context) ([]string, error)
	RecordTransactions(ctx context.Context, txs []models.Transaction) error
	ResetLedger(ctx context.Context) error
	// GetBalance returns 0 for a wallet that never transacted; there is no "not found" outcome.
	GetBalance(ctx context.Context, walletAddress string) (int64, error)
}

type ledgerUsecase struct {
	repo    repository.LedgerRepository
	log     logger.Logger
	metrics *metrics.Metrics
}

func NewLedgerUsecase(repo repository.LedgerRepository, log logger.Logger, m *metrics.Metrics) LedgerUsecase {
	return &ledgerUsecase{repo: repo, log: log, metrics: m}
}

func (uc *ledgerUsecase) VerifyConnectivity(ctx context.Context) ([]string, error) {
	tables, err := uc.repo.ListTables(ctx)
	if err != nil {
		uc.log.Error("Connectivity check failed", logger.ErrorField("error", err))
		return nil, fmt.Errorf("verify connectivity: %w", err)
	}

	uc.log.Info("Existing tables", logger.StringsField("tables", tables))
	if !slices.Contains(tables, "transactions") {
		return tables, ErrSchemaMissing
	}
	return tables, nil
}

func (uc *ledgerUsecase) RecordTransactions(ctx context.Context, txs []models.Transaction) error {
	uc.log.Info("Recording transactions", logger.IntField("count", len(txs)))

	if err := uc.repo.InsertTransactions(ctx, txs); err != nil {
		return fmt.Errorf("record transactions: %w", err)
	}
	return nil
}

func (uc *ledgerUsecase) ResetLedger(ctx context.Context) error {
	uc.log.Warn("Resetting ledger")

	if err := uc.repo.DeleteAllTransactions(ctx); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	return nil
}

func (uc *ledgerUsecase) GetBalance(ctx context.Context, walletAddress string) (int64, error) {
	records, err := uc.repo.ListByWallet(ctx, walletAddress)
	if err != nil {
		uc.metrics.RecordBalanceQuery("store_error")
		return 0, fmt.Errorf("get balance: %w", err)
	}

	total, err := balance.Compute(records)
	if err != nil {
		uc.metrics.RecordBalanceQuery("overflow")
		uc.log.Error("Balance computation failed",
			logger.StringField("wallet_id", walletAddress),
			logger.IntField("records", len(records)),
			logger.ErrorField("error", err))
		return 0, fmt.Errorf("get balance for %s: %w", walletAddress, err)
	}

	uc.metrics.RecordBalanceQuery("success")
	uc.log.Debug("Balance computed",
		logger.StringField("wallet_id", walletAddress),
		logger.Int64Field("balance", total))
	return total, nil
}

// IsOverflow reports whether err came from a balance that does not fit in int64.
func IsOverflow(err error) bool {
	return errors.Is(err, balance.ErrOverflow)
}
