package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Nzyazin/ledger/internal/core/logger"
	"github.com/Nzyazin/ledger/internal/core/models"
	"github.com/Nzyazin/ledger/internal/core/repository"
	"github.com/Nzyazin/ledger/internal/metrics"
	"github.com/jmoiron/sqlx"
)

const (
	opInsert     = "insert_transactions"
	opDeleteAll  = "delete_all_transactions"
	opListWallet = "list_by_wallet"
	opListTables = "list_tables"

	// Keeps each multi-row INSERT under the bind parameter limit of every supported driver.
	insertBatchSize = 300
	retryBaseDelay  = 50 * time.Millisecond
)

const (
	insertTransactionQuery = `INSERT INTO transactions (wallet_address, transaction_type, amount)
		VALUES (:wallet_address, :transaction_type, :amount)`
	listByWalletQuery = `SELECT id, wallet_address, transaction_type, amount
		FROM transactions WHERE wallet_address = ? ORDER BY id`
	deleteAllQuery = `DELETE FROM transactions`
)

type Options struct {
	// QueryTimeout bounds pool acquisition plus query execution; zero disables it.
	QueryTimeout time.Duration
	// MaxRetries is the number of attempts for a write that hits a transient conflict.
	MaxRetries int
	Metrics    *metrics.Metrics
}

type ledgerRepo struct {
	db      *sqlx.DB
	dialect Dialect
	log     logger.Logger
	metrics *metrics.Metrics

	queryTimeout time.Duration
	maxRetries   int
}

func NewLedgerRepo(db *sqlx.DB, log logger.Logger, opts Options) (repository.LedgerRepository, error) {
	dialect, err := DialectFor(db.DriverName())
	if err != nil {
		return nil, err
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &ledgerRepo{
		db:           db,
		dialect:      dialect,
		log:          log,
		metrics:      opts.Metrics,
		queryTimeout: opts.QueryTimeout,
		maxRetries:   maxRetries,
	}, nil
}

// EnsureSchema creates the transactions relation and its wallet index if they are missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	dialect, err := DialectFor(db.DriverName())
	if err != nil {
		return err
	}
	for _, stmt := range dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (r *ledgerRepo) InsertTransactions(ctx context.Context, txs []models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	err := r.run(ctx, opInsert, func(ctx context.Context) error {
		return r.withRetry(ctx, opInsert, func(ctx context.Context) error {
			return r.insertBatch(ctx, txs)
		})
	})
	if err != nil {
		return err
	}

	r.metrics.RecordBatch()
	for txType, count := range countByType(txs) {
		r.metrics.RecordTransactionsRecorded(txType, count)
	}
	r.log.Debug("Transactions inserted", logger.IntField("count", len(txs)))
	return nil
}

func (r *ledgerRepo) insertBatch(ctx context.Context, txs []models.Transaction) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.log.Error("Transaction rollback failed", logger.ErrorField("error", rbErr))
			err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
	}()

	for start := 0; start < len(txs); start += insertBatchSize {
		end := min(start+insertBatchSize, len(txs))
		if _, err = tx.NamedExecContext(ctx, insertTransactionQuery, txs[start:end]); err != nil {
			return fmt.Errorf("insert transactions: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	committed = true
	return nil
}

func (r *ledgerRepo) DeleteAllTransactions(ctx context.Context) error {
	err := r.run(ctx, opDeleteAll, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, deleteAllQuery)
		if err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			r.log.Info("Ledger cleared", logger.Int64Field("deleted", n))
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.metrics.RecordLedgerReset()
	return nil
}

func (r *ledgerRepo) ListByWallet(ctx context.Context, walletAddress string) ([]models.TransactionRecord, error) {
	records := make([]models.TransactionRecord, 0)
	err := r.run(ctx, opListWallet, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &records, r.db.Rebind(listByWalletQuery), walletAddress)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *ledgerRepo) ListTables(ctx context.Context) ([]string, error) {
	tables := make([]string, 0)
	err := r.run(ctx, opListTables, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &tables, r.dialect.TablesQuery)
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// run bounds fn with the query timeout, records it and turns any failure into a StoreError.
func (r *ledgerRepo) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	err := classify(fn(ctx))
	r.metrics.RecordStoreQuery(op, status(err), time.Since(start))
	if err == nil {
		return nil
	}

	r.log.Error("Store operation failed",
		logger.StringField("operation", op),
		logger.StringField("driver", r.dialect.Name),
		logger.ErrorField("error", err))
	return repository.NewStoreError(op, err)
}

func (r *ledgerRepo) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !r.dialect.Retryable(err) {
			return err
		}
		lastErr = err

		if attempt == r.maxRetries {
			break
		}
		r.metrics.RecordStoreRetry(op)
		r.log.Warn("Transient store conflict, retrying",
			logger.StringField("operation", op),
			logger.IntField("attempt", attempt),
			logger.ErrorField("error", err))

		sleep := time.Duration(attempt*attempt) * retryBaseDelay
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", r.maxRetries, lastErr)
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", repository.ErrTimeout, err)
	case errors.Is(err, models.ErrUnknownTransactionType):
		return fmt.Errorf("%w: %w", repository.ErrDecode, err)
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, driver.ErrBadConn), isNetError(err):
		return fmt.Errorf("%w: %w", repository.ErrUnavailable, err)
	default:
		return err
	}
}

func isNetError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, repository.ErrTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrDecode):
		return "decode_error"
	case errors.Is(err, repository.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func countByType(txs []models.Transaction) map[string]int {
	counts := make(map[string]int, 2)
	for _, tx := range txs {
		counts[tx.TransactionType.String()]++
	}
	return counts
}
